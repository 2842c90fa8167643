/*
Package protocol validates protocol definitions and evaluates their
rule sets against incoming records messages.

ValidateDefinition checks a ProtocolConfigure's shape before it is
installed: rule-set tree depth, every nested rule set's key names a
declared type, size bounds, and that every action rule names an actor
class (who or role) consistent with spec.md's action-rule constraints
(who=anyone excludes `of`, who=author requires it, a bare who=recipient
rule may only grant the co-* actions, update/delete imply create, a
role must grant the read-like actions and reference a declared $role
rule set, and no two action rules in a rule set may govern the same
actor). Evaluate walks the rule set governing a
message's protocol path and decides whether the acting DID is granted
the resolved action (create, update, co-update, delete, co-delete,
co-prune, read, query or subscribe), either directly (who: author /
recipient / anyone) or through a protocol role.

Both are grounded on pkg/security's recursive trust-chain shape
(root certificate -> issued certificates, verified link by link): here
a protocol's RuleSet tree plays the role of the chain, walked
iteratively with an explicit stack rather than recursion so a
maliciously deep definition fails with a bounds error instead of
exhausting the goroutine stack.
*/
package protocol
