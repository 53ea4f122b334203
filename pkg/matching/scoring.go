package matching

import (
	"sort"
	"strings"

	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Scorer provides fuzzy string comparisons on a 0-100 scale
type Scorer struct{}

// NewScorer creates a new Scorer
func NewScorer() *Scorer {
	return &Scorer{}
}

// Ratio is the normalized InDel similarity of a and b: the share of runes
// left in place when a is turned into b by insertions and deletions only,
// 200*LCS/(len(a)+len(b)). Two empty strings are identical.
func (s *Scorer) Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 100
	}
	return 200 * float64(lcsLength(ra, rb)) / float64(total)
}

// lcsLength is the length of the longest common subsequence of a and b
func lcsLength(a, b []rune) int {
	if len(a) < len(b) {
		a, b = b, a
	}
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for _, ra := range a {
		for j, rb := range b {
			switch {
			case ra == rb:
				cur[j+1] = prev[j] + 1
			case prev[j+1] >= cur[j]:
				cur[j+1] = prev[j+1]
			default:
				cur[j+1] = cur[j]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

// TokenSortRatio compares a and b after tokenizing and sorting their words,
// so word order does not matter.
func (s *Scorer) TokenSortRatio(a, b string) float64 {
	return s.Ratio(sortedTokens(a), sortedTokens(b))
}

// PartialRatio scores the best alignment of the shorter string inside the longer one.
func (s *Scorer) PartialRatio(a, b string) float64 {
	short, long := []rune(a), []rune(b)
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) == 0 {
		if len(long) == 0 {
			return 100
		}
		return 0
	}
	if len(short) == len(long) {
		return s.Ratio(a, b)
	}

	shortStr := string(short)
	best := 0.0
	for i := 0; i+len(short) <= len(long); i++ {
		score := s.Ratio(shortStr, string(long[i:i+len(short)]))
		if score > best {
			best = score
			if best == 100 {
				break
			}
		}
	}
	return best
}

// ExtractOne returns the choice scoring highest against query. Ties keep the
// earliest choice. ok is false when choices is empty.
func (s *Scorer) ExtractOne(query string, choices []string, scorer func(a, b string) float64) (index int, score float64, ok bool) {
	index = -1
	for i, choice := range choices {
		sc := scorer(query, choice)
		if index == -1 || sc > score {
			index, score = i, sc
		}
	}
	return index, score, index != -1
}

func sortedTokens(s string) string {
	tokens := normalizers.NormalizeText(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}
