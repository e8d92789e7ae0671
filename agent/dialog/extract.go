package dialog

import (
	"regexp"
	"strings"

	statex "github.com/tanpawarit/Chative-Account-Request/agent/state"
)

// Updates maps a slot to the raw value proposed for it in one turn. A slot
// that is absent had no match; it is never an error.
type Updates map[statex.Slot]string

func (u Updates) Has(slot statex.Slot) bool {
	_, ok := u[slot]
	return ok
}

var emailExtractPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

type keywordRule[T any] struct {
	value    T
	folded   []string // matched against the lowercased text
	verbatim []string // matched against the text as written
}

func (r keywordRule[T]) matches(text, lower string) bool {
	for _, kw := range r.folded {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	for _, kw := range r.verbatim {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Rule order is the tie-break for text naming several tools or roles.
var toolRules = []keywordRule[statex.Tool]{
	{value: statex.ToolTrello, folded: []string{"trello"}, verbatim: []string{"トレロ"}},
	{value: statex.ToolGoogleDrive, folded: []string{"google drive", "googledrive"}, verbatim: []string{"グーグルドライブ", "ドライブ"}},
}

var permissionRules = []keywordRule[statex.Permission]{
	{value: statex.PermissionReader, folded: []string{"reader"}, verbatim: []string{"閲覧", "リーダー"}},
	{value: statex.PermissionCommenter, folded: []string{"commenter"}, verbatim: []string{"コメント", "コメンター"}},
	{value: statex.PermissionWriter, folded: []string{"writer"}, verbatim: []string{"編集", "ライター"}},
}

func firstMatch[T any](rules []keywordRule[T], text, lower string) (T, bool) {
	for _, r := range rules {
		if r.matches(text, lower) {
			return r.value, true
		}
	}
	var zero T
	return zero, false
}

// Extract proposes values for every slot c has not filled yet. Permission and
// background are only considered once the slots before them are already set
// in c, so a single turn never fills a slot out of order.
func Extract(c *statex.Conversation, text string) Updates {
	out := Updates{}
	lower := strings.ToLower(text)

	if !c.IsSet(statex.SlotEmail) {
		if email := emailExtractPattern.FindString(text); email != "" {
			out[statex.SlotEmail] = email
		}
	}

	if !c.IsSet(statex.SlotTool) {
		if tool, ok := firstMatch(toolRules, text, lower); ok {
			out[statex.SlotTool] = string(tool)
		}
	}

	if c.PermissionRequired() && !c.IsSet(statex.SlotPermission) {
		if perm, ok := firstMatch(permissionRules, text, lower); ok {
			out[statex.SlotPermission] = string(perm)
		}
	}

	if backgroundOpen(c) {
		// Not truncated: the validator reports the real length.
		out[statex.SlotBackground] = strings.TrimSpace(text)
	}

	return out
}

func backgroundOpen(c *statex.Conversation) bool {
	if !c.IsSet(statex.SlotEmail) || !c.IsSet(statex.SlotTool) || c.IsSet(statex.SlotBackground) {
		return false
	}
	return !c.PermissionRequired() || c.IsSet(statex.SlotPermission)
}
