package domain

import (
	"strings"

	"github.com/bytedance/sonic"
)

// DirectiveMarker separates the natural-language part of a model reply from
// the machine-readable directive that may follow it.
const DirectiveMarker = "###JSON###"

// Directive action names.
const (
	DirectiveAdd      = "add"
	DirectiveComplete = "complete"
	DirectiveDelete   = "delete"
	DirectiveList     = "list"
)

// Directive is a structured instruction extracted from a model reply. A zero
// Directive (empty Action) means none was recognized.
type Directive struct {
	Action    string `json:"action"`
	Title     string `json:"title,omitempty"`
	Priority  string `json:"priority,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	ID        int    `json:"id,omitempty"`
}

// Recognized reports whether the directive names a known action.
func (d Directive) Recognized() bool {
	switch d.Action {
	case DirectiveAdd, DirectiveComplete, DirectiveDelete, DirectiveList:
		return true
	}
	return false
}

// SplitReply separates a model reply into its natural-language part and, when
// present and well-formed, a trailing directive. A malformed or unrecognized
// directive is dropped; the natural-language part always survives.
func SplitReply(reply string) (string, Directive) {
	text, raw, found := strings.Cut(reply, DirectiveMarker)
	text = strings.TrimSpace(text)
	if !found {
		return text, Directive{}
	}
	var d Directive
	if err := sonic.ConfigStd.UnmarshalFromString(strings.TrimSpace(raw), &d); err != nil {
		return text, Directive{}
	}
	if !d.Recognized() {
		return text, Directive{}
	}
	return text, d
}
