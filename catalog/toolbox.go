package catalog

import (
	"fmt"
	"io"
	"strings"
)

// WriteToolboxXML renders the category tree as the editor's toolbox
// markup: one <category> element per tree node, with the display name
// underscore-stripped and the declared colour, and one <block> reference
// per member type.
//
// Deprecated blocks are left out so they can't be picked for new
// programs, but they remain in the registry so saved programs that use
// them still compile.
func (r *Registry) WriteToolboxXML(out io.Writer) error {
	return r.writeCategories(out, r.Categories)
}

// ToolboxXML is WriteToolboxXML into a string.
func (r *Registry) ToolboxXML() string {
	var sb strings.Builder
	r.WriteToolboxXML(&sb)
	return sb.String()
}

func (r *Registry) writeCategories(out io.Writer, cats []*Category) error {
	for _, c := range cats {
		name := strings.ReplaceAll(c.Name, "_", "")
		if _, err := fmt.Fprintf(out, `<category name="%s" colour="%d">`, name, c.Colour); err != nil {
			return err
		}
		if err := r.writeCategories(out, c.Children); err != nil {
			return err
		}
		for _, typ := range c.Blocks {
			if b, have := r.byType[typ]; have && b.Deprecated {
				continue
			}
			if _, err := fmt.Fprintf(out, `<block type="%s"></block>`, typ); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(out, `</category>`); err != nil {
			return err
		}
	}
	return nil
}
