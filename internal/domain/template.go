package domain

// TemplateType distinguishes layout variants of a template.
type TemplateType string

const (
	TemplateBasic   TemplateType = "basic"
	TemplateReverse TemplateType = "reverse"
	TemplateCloze   TemplateType = "cloze"
)

// Template is a named question/answer rendering rule. Question and Answer
// hold field-reference expressions such as "{{emoji}}".
type Template struct {
	ID       string
	Question string
	Answer   string
	Type     TemplateType
	Style    string
}

// NewTemplate builds a template, defaulting the type to TemplateBasic.
func NewTemplate(id, question, answer string, typ TemplateType, style string) *Template {
	if typ == "" {
		typ = TemplateBasic
	}
	return &Template{
		ID:       id,
		Question: question,
		Answer:   answer,
		Type:     typ,
		Style:    style,
	}
}
