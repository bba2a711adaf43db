package jsonapi

// ResourceBuilder builds a Resource.
type ResourceBuilder struct {
	resource Resource
}

// NewResource starts a resource of the given type and id.
func NewResource(resourceType, id string) *ResourceBuilder {
	return &ResourceBuilder{
		resource: Resource{
			Type:       resourceType,
			ID:         id,
			Attributes: make(map[string]any),
		},
	}
}

// Attr sets an attribute. The reserved member names id and type are ignored.
func (b *ResourceBuilder) Attr(key string, value any) *ResourceBuilder {
	if key == "id" || key == "type" {
		return b
	}
	b.resource.Attributes[key] = value
	return b
}

// Meta adds a meta entry to the resource.
func (b *ResourceBuilder) Meta(key string, value any) *ResourceBuilder {
	if b.resource.Meta == nil {
		b.resource.Meta = make(Meta)
	}
	b.resource.Meta[key] = value
	return b
}

// Link sets the resource's self link.
func (b *ResourceBuilder) Link(self string) *ResourceBuilder {
	b.resource.Links = &Links{Self: self}
	return b
}

// Build returns the resource.
func (b *ResourceBuilder) Build() Resource {
	return b.resource
}
