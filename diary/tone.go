package diary

import "strings"

// NormalizeAddress rewrites third-person address that leaked the persona's
// own name ("{name}さん" / "{name}様") into the neutral お客様. Re-applying
// it is a no-op.
func NormalizeAddress(text, displayName string) string {
	if displayName == "" {
		return text
	}
	text = strings.ReplaceAll(text, displayName+"さん", "お客様")
	text = strings.ReplaceAll(text, displayName+"様", "お客様")
	return text
}
