package search

import (
	"sort"
	"strconv"
	"strings"

	"github.com/sandevgo/gronkbot/internal/core"
)

// Ranges wider than this are left unexpanded. The model occasionally
// hallucinates spans like [#1-#99999]; expanding those would flood the reply.
const maxRangeSpan = 100

// Resolve rewrites citation markers in model output into markdown links.
//
// It is a single left-to-right tokenizing pass. Each `#`- or `[#`-prefixed
// token is classified once (bare single, bare chain, bracketed single,
// bracketed range, already-linked) and rewritten in place:
//
//   - decoration after a bare marker is dropped: #248(channel-name) -> #248
//   - a bare single #N becomes a linked [#N](url); out-of-map numbers stay
//     as an unlinked [#N] so the reader can see the dangling reference
//   - a range [#N-#M] (bare or bracketed, # on the second number optional)
//     expands to individually linked citations joined by dashes
//   - chains of three or more numbers link each listed number
//   - markers already in [#N](url) form are copied verbatim, which makes
//     Resolve idempotent
//   - a marker touching a dash, ), or ] is left alone rather than guessed at
func Resolve(text string, numbers core.NumberMap, link core.LinkBuilder) string {
	r := newResolver(text, numbers, link)
	r.run()
	return r.out.String()
}

// CitedNumbers reports the distinct message numbers referenced anywhere in
// text, with ranges expanded, sorted ascending. Out-of-map numbers are
// included: the caller reports what the model cited, not what resolved.
func CitedNumbers(text string) []int {
	r := newResolver(text, nil, nil)
	r.run()

	nums := make([]int, 0, len(r.cited))
	for n := range r.cited {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums
}

type resolver struct {
	src     string
	pos     int
	out     strings.Builder
	last    byte // last byte emitted
	cited   map[int]struct{}
	numbers core.NumberMap
	link    core.LinkBuilder
}

func newResolver(src string, numbers core.NumberMap, link core.LinkBuilder) *resolver {
	return &resolver{
		src:     src,
		cited:   make(map[int]struct{}),
		numbers: numbers,
		link:    link,
	}
}

func (r *resolver) run() {
	for r.pos < len(r.src) {
		c := r.src[r.pos]
		switch {
		case c == '[' && r.at(r.pos+1) == '#' && isDigit(r.at(r.pos+2)):
			r.bracketGroup()
		case c == '#' && isDigit(r.at(r.pos+1)):
			r.bareGroup()
		default:
			r.emit(r.src[r.pos : r.pos+1])
			r.pos++
		}
	}
}

// bareGroup handles a marker starting with # outside brackets.
func (r *resolver) bareGroup() {
	nums, end := r.readChain(r.pos)

	switch {
	case len(nums) == 1:
		n := nums[0]
		next := r.at(end)
		switch {
		case next == ')' || next == ']' || next == '-':
			// Inside someone else's syntax ("(#5)", "[see #5]") or a chain
			// that failed to parse. Keep it bare, decoration still dropped.
			r.emit("#" + strconv.Itoa(n))
		case r.last == '-':
			// Right half of a hand-written range; wrap without linking so a
			// second pass leaves it alone too.
			r.cite(n)
			r.emit("[#" + strconv.Itoa(n) + "]")
		default:
			r.emitLinked(n)
		}
	case len(nums) == 2:
		r.emitRange(nums[0], nums[1])
	default:
		r.emitListed(nums)
	}
	r.pos = end
}

// bracketGroup handles a marker starting with [#.
func (r *resolver) bracketGroup() {
	open := r.pos
	nums, end := r.readChain(open + 1)
	if len(nums) == 0 || r.at(end) != ']' {
		// Not a well-formed citation group; emit the bracket and rescan the
		// contents so an inner bare marker is still handled.
		r.emit("[")
		r.pos = open + 1
		return
	}
	after := end + 1

	switch {
	case len(nums) == 1:
		n := nums[0]
		if r.at(after) == '(' {
			// Already a markdown link: copy verbatim. This is what makes a
			// second Resolve pass a no-op.
			if rel := strings.IndexByte(r.src[after:], ')'); rel >= 0 {
				r.cite(n)
				r.emit(r.src[open : after+rel+1])
				r.pos = after + rel + 1
				return
			}
		}
		if r.last == '-' || r.at(after) == '-' {
			// Start or end of a hand-written [#N]-[#M] range; never re-wrap.
			r.cite(n)
			r.emit(r.src[open:after])
			r.pos = after
			return
		}
		r.emitLinked(n)
		r.pos = after
	case len(nums) == 2:
		r.emitRange(nums[0], nums[1])
		r.pos = after
	default:
		r.emitListed(nums)
		r.pos = after
	}
}

// readChain parses #N(-#?M)* starting at pos (src[pos] must be '#'). A
// parenthetical immediately after a number is decoration and is skipped.
// Returns the numbers and the index one past the last consumed byte.
func (r *resolver) readChain(pos int) ([]int, int) {
	if r.at(pos) != '#' {
		return nil, pos
	}
	n, p, ok := readNumber(r.src, pos+1)
	if !ok {
		return nil, pos
	}
	nums := []int{n}
	p = r.skipDecoration(p)

	for r.at(p) == '-' {
		q := p + 1
		if r.at(q) == '#' {
			q++
		}
		m, q2, ok := readNumber(r.src, q)
		if !ok {
			break
		}
		nums = append(nums, m)
		p = r.skipDecoration(q2)
	}
	return nums, p
}

func (r *resolver) skipDecoration(p int) int {
	if r.at(p) != '(' {
		return p
	}
	if rel := strings.IndexByte(r.src[p:], ')'); rel >= 0 {
		return p + rel + 1
	}
	return p
}

func (r *resolver) emitRange(a, b int) {
	if b < a || b-a > maxRangeSpan {
		r.emit("[#" + strconv.Itoa(a) + "-#" + strconv.Itoa(b) + "]")
		return
	}
	parts := make([]string, 0, b-a+1)
	for n := a; n <= b; n++ {
		r.cite(n)
		parts = append(parts, r.marker(n))
	}
	r.emit(strings.Join(parts, "-"))
}

func (r *resolver) emitListed(nums []int) {
	parts := make([]string, 0, len(nums))
	for _, n := range nums {
		r.cite(n)
		parts = append(parts, r.marker(n))
	}
	r.emit(strings.Join(parts, "-"))
}

func (r *resolver) emitLinked(n int) {
	r.cite(n)
	r.emit(r.marker(n))
}

// marker renders [#N](url), or a plain [#N] when the number is not in the map.
func (r *resolver) marker(n int) string {
	m := "[#" + strconv.Itoa(n) + "]"
	if msg, ok := r.numbers[n]; ok && r.link != nil {
		return m + "(" + r.link(msg) + ")"
	}
	return m
}

func (r *resolver) emit(s string) {
	if s == "" {
		return
	}
	r.out.WriteString(s)
	r.last = s[len(s)-1]
}

func (r *resolver) cite(n int) {
	r.cited[n] = struct{}{}
}

func (r *resolver) at(i int) byte {
	if i < 0 || i >= len(r.src) {
		return 0
	}
	return r.src[i]
}

func readNumber(s string, pos int) (int, int, bool) {
	end := pos
	for end < len(s) && isDigit(s[end]) {
		end++
	}
	if end == pos || end-pos > 9 {
		return 0, pos, false
	}
	n, err := strconv.Atoi(s[pos:end])
	if err != nil {
		return 0, pos, false
	}
	return n, end, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
