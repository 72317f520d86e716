package version

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gcstr/verpack/internal/apperr"
)

// tagPattern accepts release tags of the form v<digit>.<digit>.<digit>.
var tagPattern = regexp.MustCompile(`^v([0-9])\.([0-9])\.([0-9])$`)

// Tag is a validated release tag.
type Tag struct {
	Name  string
	Major int
	Minor int
	Patch int
}

// ParseTag validates s against v<digit>.<digit>.<digit> and extracts its
// components. Surrounding whitespace from command output is ignored.
func ParseTag(s string) (Tag, error) {
	name := strings.TrimSpace(s)
	m := tagPattern.FindStringSubmatch(name)
	if m == nil {
		return Tag{}, apperr.New("version.ParseTag", apperr.MalformedTag, "tag %q does not match v<digit>.<digit>.<digit>", name)
	}
	t := Tag{Name: name}
	for i, dst := range []*int{&t.Major, &t.Minor, &t.Patch} {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return Tag{}, apperr.Wrap("version.ParseTag", apperr.Internal, err, "component %q", m[i+1])
		}
		*dst = n
	}
	return t, nil
}

// Version returns the tag without its leading "v".
func (t Tag) Version() string {
	return strings.TrimPrefix(t.Name, "v")
}

func (t Tag) String() string { return t.Name }
