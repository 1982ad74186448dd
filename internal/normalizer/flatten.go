package normalizer

import (
	"context"
	"strings"

	"patriotpilot/internal/contextutil"
)

// Fragment is one labeled string leaf: the space-joined key chain and the leaf value.
type Fragment struct {
	Label string
	Value string
}

// String renders the fragment as "label: value", or just the value when there is no label.
func (f Fragment) String() string {
	if f.Label == "" {
		return f.Value
	}
	return f.Label + ": " + f.Value
}

// Skip records a leaf that was dropped during flattening.
type Skip struct {
	Label string
	Kind  Kind
	Raw   string
}

// Flatten walks v depth-first in source order and returns one Fragment per string leaf.
// Mapping keys extend the label; sequence elements keep their parent's label.
// Missing and Unsupported leaves are skipped and logged at debug level.
func Flatten(ctx context.Context, v Value) ([]Fragment, []Skip) {
	f := flattener{ctx: ctx}
	f.walk(nil, v)
	return f.fragments, f.skips
}

type flattener struct {
	ctx       context.Context
	fragments []Fragment
	skips     []Skip
}

func (f *flattener) walk(path []string, v Value) {
	switch v.Kind() {
	case KindString:
		f.fragments = append(f.fragments, Fragment{Label: strings.Join(path, " "), Value: v.Text()})
	case KindSequence:
		for _, item := range v.Items() {
			f.walk(path, item)
		}
	case KindMapping:
		for _, e := range v.Entries() {
			// Full slice expression so siblings never share a backing array.
			f.walk(append(path[:len(path):len(path)], e.Key), e.Value)
		}
	default:
		skip := Skip{Label: strings.Join(path, " "), Kind: v.Kind()}
		if v.Kind() == KindUnsupported {
			skip.Raw = v.Text()
		}
		f.skips = append(f.skips, skip)
		contextutil.LoggerFromContext(f.ctx).DebugContext(f.ctx, "normalization skip",
			"label", skip.Label,
			"kind", skip.Kind.String(),
			"raw", skip.Raw,
		)
	}
}
