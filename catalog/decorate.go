package catalog

import (
	"fmt"
	"regexp"
	"strconv"
)

var placeholder = regexp.MustCompile(`%\d+`)

// IconSize is the rendered width and height of an icon field.
var IconSize = 15

// Decorate prepends the given icons to a block's message and args.
//
// Icons are processed in reverse declared order.  Each pass inserts a
// synthetic image field at the front of args, renumbers every
// placeholder in the message up by one, and prepends a fresh %1 pointing
// at the new field.  Front insertion plus reverse iteration means the
// final left-to-right visual order matches declaration order.
//
// srcs maps icon keys to image URLs; an undeclared key is an error.
func Decorate(message string, args []Arg, icons []string, srcs map[string]string) (string, []Arg, error) {
	for i := len(icons) - 1; 0 <= i; i-- {
		icon := icons[i]
		src, have := srcs[icon]
		if !have {
			return "", nil, fmt.Errorf("unknown icon %q", icon)
		}

		args = append([]Arg{{
			Kind:   ImageField,
			Src:    src,
			Alt:    icon,
			Width:  IconSize,
			Height: IconSize,
		}}, args...)

		message = "%1 " + bump(message)
	}
	return message, args, nil
}

// bump renumbers every placeholder token in the message up by one.
func bump(message string) string {
	return placeholder.ReplaceAllStringFunc(message, func(tok string) string {
		n, err := strconv.Atoi(tok[1:])
		if err != nil {
			// \d+ matched, so this can't happen.
			return tok
		}
		return "%" + strconv.Itoa(n+1)
	})
}
