package moderation

import "github.com/abadojack/whatlanggo"

// DetectLanguage tags a message with its ISO 639-3 language code, or an
// empty string when detection is too unreliable to store.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return ""
	}
	return whatlanggo.LangToString(info.Lang)
}
