package intent

import "strings"

// Keyword sets for the deterministic rule fallback. Legal terms are checked
// first, then statistics terms, then recommendation terms. The legal and
// statistics sets match the question as written; the recommendation set also
// matches a lower-cased copy.
var (
	legalKeywords = []string{
		"저작권", "법", "법률", "계약", "초상권", "허가", "라이선스",
		"드라마화", "영화화", "각색", "판권", "ip", "리메이크", "원작 계약", "섭외",
	}
	statusKeywords = []string{
		"조회수", "구독자수", "평점", "랭킹", "순위", "선호도", "통계",
	}
	recommendKeywords = []string{
		"추천", "골라줘", "픽", "고르면", "추천해", "골라", "뭘 볼까", "추천 좀",
	}
	secondaryMediaKeywords = []string{"드라마", "영화", "게임", "애니"}
)

// FallbackLabel applies the keyword rules to a question and returns the
// overriding label, or def when no rule fires. The result is deterministic
// for a given question text.
func FallbackLabel(question string, def Label) Label {
	lowered := strings.ToLower(question)

	if containsAny(question, legalKeywords) {
		return LabelLegal
	}
	if containsAny(question, statusKeywords) {
		return LabelStatus
	}
	if containsAny(question, secondaryMediaKeywords) && containsAny(lowered, recommendKeywords) {
		return LabelRecommend
	}
	if containsAny(lowered, recommendKeywords) {
		return LabelRecommend
	}
	return def
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
