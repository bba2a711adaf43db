package jsonapi

// DocumentBuilder builds a Document.
type DocumentBuilder struct {
	doc Document
}

// NewDocument starts an empty document.
func NewDocument() *DocumentBuilder {
	return &DocumentBuilder{}
}

// Data sets the primary data to a single resource.
func (b *DocumentBuilder) Data(r Resource) *DocumentBuilder {
	b.doc.Data = r
	b.doc.Errors = nil
	return b
}

// Collection sets the primary data to a list of resources. A nil list is
// written as an empty array.
func (b *DocumentBuilder) Collection(resources []Resource) *DocumentBuilder {
	if resources == nil {
		resources = []Resource{}
	}
	b.doc.Data = resources
	b.doc.Errors = nil
	return b
}

// Errors replaces the primary data with errors.
func (b *DocumentBuilder) Errors(errs ...Error) *DocumentBuilder {
	b.doc.Errors = errs
	b.doc.Data = nil
	return b
}

// Meta adds a top-level meta entry.
func (b *DocumentBuilder) Meta(key string, value any) *DocumentBuilder {
	if b.doc.Meta == nil {
		b.doc.Meta = make(Meta)
	}
	b.doc.Meta[key] = value
	return b
}

// Self sets the top-level self link.
func (b *DocumentBuilder) Self(link string) *DocumentBuilder {
	if link == "" {
		return b
	}
	b.doc.Links = &Links{Self: link}
	return b
}

// Versioned declares the JSON:API version.
func (b *DocumentBuilder) Versioned() *DocumentBuilder {
	b.doc.JSONAPI = &JSONAPI{Version: Version}
	return b
}

// Build returns the document.
func (b *DocumentBuilder) Build() Document {
	return b.doc
}
