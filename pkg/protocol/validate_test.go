package protocol

import (
	"testing"

	"github.com/cuemby/dwn/pkg/dwnerr"
	"github.com/cuemby/dwn/pkg/types"
)

func TestValidateDefinitionAcceptsWellFormedStructure(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types: map[string]types.TypeDef{
			"post":    {},
			"comment": {},
		},
		Structure: map[string]types.RuleSet{
			"post": {
				Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}},
				Nested: map[string]types.RuleSet{
					"comment": {
						Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}},
					},
				},
			},
		},
	}
	if err := ValidateDefinition(def); err != nil {
		t.Fatalf("ValidateDefinition: %v", err)
	}
}

func TestValidateDefinitionRejectsMissingProtocolURI(t *testing.T) {
	err := ValidateDefinition(types.ProtocolDefinition{})
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest", err)
	}
}

func TestValidateDefinitionRejectsActionRuleWithNoActor(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{{Can: []types.Action{types.ActionCreate}}}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest", err)
	}
}

func TestValidateDefinitionRejectsInvertedSizeBounds(t *testing.T) {
	min, max := int64(100), int64(10)
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Size: &types.SizeConstraint{Min: &min, Max: &max}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest", err)
	}
}

func TestValidateDefinitionRejectsExcessiveDepth(t *testing.T) {
	leaf := types.RuleSet{Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}}}
	for i := 0; i < 12; i++ {
		leaf = types.RuleSet{Nested: map[string]types.RuleSet{"child": leaf}}
	}
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/deep",
		Types:       map[string]types.TypeDef{"child": {}},
		Structure:   map[string]types.RuleSet{"root": leaf},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest for excessive depth", err)
	}
}

func TestValidateDefinitionRejectsUndeclaredNestedType(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types:       map[string]types.TypeDef{"post": {}},
		Structure: map[string]types.RuleSet{
			"post": {
				Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}},
				Nested: map[string]types.RuleSet{
					"comment": {Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}}},
				},
			},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest for a nested rule set with no matching type", err)
	}
}

func TestValidateDefinitionRejectsOfWithWhoAnyone(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{{Who: types.WhoAnyone, Of: "post", Can: []types.Action{types.ActionCreate}}}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: who=anyone must not set `of`", err)
	}
}

func TestValidateDefinitionRejectsAuthorWithoutOf(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types:       map[string]types.TypeDef{"comment": {}},
		Structure: map[string]types.RuleSet{
			"post": {
				Nested: map[string]types.RuleSet{
					"comment": {Actions: []types.ActionRule{{Who: types.WhoAuthor, Can: []types.Action{types.ActionCreate}}}},
				},
			},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: who=author must set `of`", err)
	}
}

func TestValidateDefinitionRejectsBareRecipientGrantingCreate(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{{Who: types.WhoRecipient, Can: []types.Action{types.ActionCreate}}}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: recipient rule with no `of` may only grant co-* actions", err)
	}
}

func TestValidateDefinitionAcceptsBareRecipientGrantingCoUpdate(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{
				{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}},
				{Who: types.WhoRecipient, Can: []types.Action{types.ActionCoUpdate}},
			}},
		},
	}
	if err := ValidateDefinition(def); err != nil {
		t.Fatalf("ValidateDefinition: %v", err)
	}
}

func TestValidateDefinitionRejectsUpdateWithoutCreate(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{{Who: types.WhoAuthor, Of: "post", Can: []types.Action{types.ActionUpdate}}}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: update without create", err)
	}
}

func TestValidateDefinitionRejectsDeleteWithoutCreate(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{{Who: types.WhoAuthor, Of: "post", Can: []types.Action{types.ActionDelete}}}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: delete without create", err)
	}
}

func TestValidateDefinitionRejectsRoleNotDeclared(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"thread": {
				Actions: []types.ActionRule{{Role: "thread/participant", Can: []types.Action{types.ActionRead, types.ActionQuery, types.ActionSubscribe}}},
			},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: role references no declared $role rule set", err)
	}
}

func TestValidateDefinitionRejectsRoleMissingReadLikeActions(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types:       map[string]types.TypeDef{"participant": {}, "chat": {}},
		Structure: map[string]types.RuleSet{
			"thread": {
				Nested: map[string]types.RuleSet{
					"participant": {Role: true, Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}}},
					"chat": {
						Actions: []types.ActionRule{{Role: "thread/participant", Can: []types.Action{types.ActionRead}}},
					},
				},
			},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: role rule must grant read, query and subscribe", err)
	}
}

func TestValidateDefinitionAcceptsWellFormedRole(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types:       map[string]types.TypeDef{"participant": {}, "chat": {}},
		Structure: map[string]types.RuleSet{
			"thread": {
				Nested: map[string]types.RuleSet{
					"participant": {Role: true, Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}}},
					"chat": {
						Actions: []types.ActionRule{
							{Who: types.WhoAuthor, Of: "thread", Can: []types.Action{types.ActionCreate}},
							{Role: "thread/participant", Can: []types.Action{types.ActionRead, types.ActionQuery, types.ActionSubscribe}},
						},
					},
				},
			},
		},
	}
	if err := ValidateDefinition(def); err != nil {
		t.Fatalf("ValidateDefinition: %v", err)
	}
}

func TestValidateDefinitionRejectsDuplicateWhoOf(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Structure: map[string]types.RuleSet{
			"post": {Actions: []types.ActionRule{
				{Who: types.WhoAuthor, Of: "post", Can: []types.Action{types.ActionCreate}},
				{Who: types.WhoAuthor, Of: "post", Can: []types.Action{types.ActionUpdate, types.ActionCreate}},
			}},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: duplicate (who, of) within a rule set", err)
	}
}

func TestValidateDefinitionRejectsDuplicateRole(t *testing.T) {
	def := types.ProtocolDefinition{
		ProtocolURI: "https://example.com/social",
		Types:       map[string]types.TypeDef{"participant": {}, "chat": {}},
		Structure: map[string]types.RuleSet{
			"thread": {
				Nested: map[string]types.RuleSet{
					"participant": {Role: true, Actions: []types.ActionRule{{Who: types.WhoAnyone, Can: []types.Action{types.ActionCreate}}}},
					"chat": {
						Actions: []types.ActionRule{
							{Role: "thread/participant", Can: []types.Action{types.ActionRead, types.ActionQuery, types.ActionSubscribe}},
							{Role: "thread/participant", Can: []types.Action{types.ActionRead, types.ActionQuery, types.ActionSubscribe, types.ActionCreate}},
						},
					},
				},
			},
		},
	}
	err := ValidateDefinition(def)
	if !dwnerr.Is(err, dwnerr.BadRequest) {
		t.Fatalf("got %v, want BadRequest: duplicate role within a rule set", err)
	}
}
