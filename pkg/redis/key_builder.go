package redis

import "strings"

// KeyBuilder builds namespaced cache keys of the form
// namespace:context:entity:attribute.
type KeyBuilder struct {
	namespace string
	context   string
}

// NewKeyBuilder creates a KeyBuilder for the given namespace and context.
func NewKeyBuilder(namespace, context string) *KeyBuilder {
	return &KeyBuilder{namespace: namespace, context: context}
}

// Build assembles a key from the configured prefix and the given parts.
func (kb *KeyBuilder) Build(entity, attribute string) string {
	parts := []string{kb.namespace, kb.context, entity}
	if attribute != "" {
		parts = append(parts, attribute)
	}
	return strings.Join(parts, ":")
}
