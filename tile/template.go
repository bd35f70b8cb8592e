package tile

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidTemplate is returned when a source template lacks a placeholder.
var ErrInvalidTemplate = errors.New("tile: template must contain {z}, {x} and {y}")

// Template is a source locator pattern such as
// "https://tiles.example.com/{z}/{x}/{y}.webp" or "/data/dem/{z}/{x}/{y}.png".
type Template string

// ParseTemplate validates s as a source template.
// "{zoom}" is accepted as an alias of "{z}".
func ParseTemplate(s string) (Template, error) {
	hasZ := strings.Contains(s, "{z}") || strings.Contains(s, "{zoom}")
	if !hasZ || !strings.Contains(s, "{x}") || !strings.Contains(s, "{y}") {
		return "", ErrInvalidTemplate
	}
	return Template(s), nil
}

// Resolve substitutes the wrapped index into the template.
func (t Template) Resolve(i Index) string {
	w := i.Wrap()
	r := strings.NewReplacer(
		"{x}", strconv.Itoa(w.X),
		"{y}", strconv.Itoa(w.Y),
		"{z}", strconv.Itoa(w.Z),
		"{zoom}", strconv.Itoa(w.Z),
	)
	return r.Replace(string(t))
}
