package crate

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/zoobzio/sentinel"
)

// Struct tags read into Site metadata.
const (
	TagIgnore  = "crate.ignore"  // ";"-separated entry keys to omit on write
	TagSort    = "crate.sort"    // "true" or "false"
	TagFilter  = "crate.filter"  // entry filter id
	TagKey     = "crate.key"     // named key codec
	TagContent = "crate.content" // named value codec
	TagSingle  = "crate.single"  // accept a single value as an array
	TagNulls   = "crate.nulls"   // "as-is", "skip" or "substitute"
)

var siteTags = []string{TagIgnore, TagSort, TagFilter, TagKey, TagContent, TagSingle, TagNulls}

func init() {
	// Register site tags with sentinel
	for _, tag := range siteTags {
		sentinel.Tag(tag)
	}
}

// NullPolicy controls what a null value in a container decodes to.
type NullPolicy uint8

const (
	// NullsDefault defers to the container family and the value codec.
	NullsDefault NullPolicy = iota

	// NullsAsIs stores null as nil.
	NullsAsIs

	// NullsSkip drops the entry.
	NullsSkip

	// NullsSubstitute stores the value codec's null substitute.
	NullsSubstitute
)

func (p NullPolicy) String() string {
	switch p {
	case NullsAsIs:
		return "as-is"
	case NullsSkip:
		return "skip"
	case NullsSubstitute:
		return "substitute"
	default:
		return "default"
	}
}

// ParseNullPolicy parses the textual form used in struct tags.
func ParseNullPolicy(s string) (NullPolicy, error) {
	switch s {
	case "", "default":
		return NullsDefault, nil
	case "as-is":
		return NullsAsIs, nil
	case "skip":
		return NullsSkip, nil
	case "substitute":
		return NullsSubstitute, nil
	}
	return NullsDefault, fmt.Errorf("%w: null policy %q", ErrInvalidTag, s)
}

// Site is the metadata of one declaration site: a struct field, parameter or
// type argument holding a container. A nil *Site is the anonymous root site.
// Sites are read-only once handed to a codec.
type Site struct {
	Name         string
	KeyCodec     string   // named key codec override
	ValueCodec   string   // named value codec override
	FilterID     string   // entry filter, empty for none
	Ignored      []string // entry keys omitted on write
	Sort         *bool    // nil defers to Features.OrderMapEntriesByKeys
	AcceptSingle *bool    // nil defers to Features.AcceptSingleValueAsArray
	Nulls        NullPolicy
}

func (s *Site) name() string {
	if s == nil {
		return ""
	}
	return s.Name
}

var sites sync.Map // reflect.Type -> map[string]*Site

// SitesFor returns the container sites declared by the fields of struct T,
// keyed by field name. Only fields carrying at least one crate tag are
// returned. Results are cached per type.
func SitesFor[T any]() (map[string]*Site, error) {
	typ := reflect.TypeFor[T]()
	if cached, ok := sites.Load(typ); ok {
		return cached.(map[string]*Site), nil
	}

	meta := sentinel.Scan[T]()
	out := make(map[string]*Site)
	for _, field := range meta.Fields {
		site, err := siteFromTags(field.Name, field.Tags)
		if err != nil {
			return nil, err
		}
		if site != nil {
			out[field.Name] = site
		}
	}

	actual, _ := sites.LoadOrStore(typ, out)
	return actual.(map[string]*Site), nil
}

// SiteFor returns the site of one field of struct T, or a bare site named
// after the field when it carries no crate tags.
func SiteFor[T any](field string) (*Site, error) {
	all, err := SitesFor[T]()
	if err != nil {
		return nil, err
	}
	if site, ok := all[field]; ok {
		return site, nil
	}
	return &Site{Name: field}, nil
}

// siteFromTags builds a Site from a field's tags. Returns nil when no crate
// tag is present.
func siteFromTags(name string, tags map[string]string) (*Site, error) {
	found := false
	for _, tag := range siteTags {
		if _, ok := tags[tag]; ok {
			found = true
			break
		}
	}
	if !found {
		return nil, nil
	}

	site := &Site{
		Name:       name,
		KeyCodec:   tags[TagKey],
		ValueCodec: tags[TagContent],
		FilterID:   tags[TagFilter],
	}

	if val, ok := tags[TagIgnore]; ok {
		for _, key := range strings.Split(val, ";") {
			if key = strings.TrimSpace(key); key != "" {
				site.Ignored = append(site.Ignored, key)
			}
		}
	}

	if val, ok := tags[TagSort]; ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q on field %s", ErrInvalidTag, TagSort, val, name)
		}
		site.Sort = &b
	}

	if val, ok := tags[TagSingle]; ok {
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, fmt.Errorf("%w: %s %q on field %s", ErrInvalidTag, TagSingle, val, name)
		}
		site.AcceptSingle = &b
	}

	if val, ok := tags[TagNulls]; ok {
		policy, err := ParseNullPolicy(val)
		if err != nil {
			return nil, fmt.Errorf("%w (field %s)", err, name)
		}
		site.Nulls = policy
	}

	return site, nil
}
