// Copyright 2024 The Stacktrace Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cleanup canonicalizes function-name spellings and prunes
// uninteresting frames out of a multistack tree, the last pipeline stage
// before rendering or inclusion in an abort error.
package cleanup

import "strings"

// substitution is applied in order; earlier rules run before later ones see
// their output, since some later rules (allocator stripping) only match
// cleanly after an earlier rule has normalized whitespace.
type substitution struct {
	old, new string
}

// Every needle here is spelled exactly as addr2line -C / atos / c++filt
// print it: real "::" namespace separators, ", " between template
// arguments, and an "l" suffix on long template arguments. Getting this
// spelling wrong means the rule silently never fires on a real decoded
// frame.
var templateWhitespace = []substitution{
	{"> >", ">>"},
	{"< ", "<"},
}

// ratioAliases collapses std::ratio<N, D> down to the libstdc++/libc++
// chrono ratio typedefs it's spelled out as in a decoded frame.
var ratioAliases = []substitution{
	{"std::ratio<1l, 1000000000000000000000000l>", "std::yocto"},
	{"std::ratio<1l, 1000000000000000000000l>", "std::zepto"},
	{"std::ratio<1l, 1000000000000000000l>", "std::atto"},
	{"std::ratio<1l, 1000000000000000l>", "std::femto"},
	{"std::ratio<1l, 1000000000000l>", "std::pico"},
	{"std::ratio<1l, 1000000000l>", "std::nano"},
	{"std::ratio<1l, 1000000l>", "std::micro"},
	{"std::ratio<1l, 1000l>", "std::milli"},
	{"std::ratio<1l, 100l>", "std::centi"},
	{"std::ratio<1l, 10l>", "std::deci"},
	{"std::ratio<1l, 1l>", ""},
	{"std::ratio<10l, 1l>", "std::deca"},
	{"std::ratio<60l, 1l>", "std::ratio<60>"},
	{"std::ratio<100l, 1l>", "std::hecto"},
	{"std::ratio<1000l, 1l>", "std::kilo"},
	{"std::ratio<3600l, 1l>", "std::ratio<3600>"},
	{"std::ratio<1000000l, 1l>", "std::mega"},
	{"std::ratio<1000000000l, 1l>", "std::giga"},
	{"std::ratio<1000000000000l, 1l>", "std::tera"},
	{"std::ratio<1000000000000000l, 1l>", "std::peta"},
	{"std::ratio<1000000000000000000l, 1l>", "std::exa"},
	{"std::ratio<1000000000000000000000l, 1l>", "std::zetta"},
	{"std::ratio<1000000000000000000000000l, 1l>", "std::yotta"},
}

// durationAliases maps exact duration template spellings to their named
// alias, mirroring the libstdc++/libc++ chrono typedefs. Must run after
// ratioAliases, since duration's second argument is itself a ratio.
var durationAliases = []substitution{
	{"std::chrono::duration<long, std::nano>", "std::chrono::nanoseconds"},
	{"std::chrono::duration<long, std::micro>", "std::chrono::microseconds"},
	{"std::chrono::duration<long, std::milli>", "std::chrono::milliseconds"},
	{"std::chrono::duration<long>", "std::chrono::seconds"},
	{"std::chrono::duration<long, >", "std::chrono::seconds"},
	{"std::chrono::duration<long, std::ratio<60>>", "std::chrono::minutes"},
	{"std::chrono::duration<long, std::ratio<3600>>", "std::chrono::hours"},
	{"std::chrono::duration<int, std::nano>", "std::chrono::nanoseconds"},
	{"std::chrono::duration<int, std::micro>", "std::chrono::microseconds"},
	{"std::chrono::duration<int, std::milli>", "std::chrono::milliseconds"},
	{"std::chrono::duration<long long, std::nano>", "std::chrono::nanoseconds"},
	{"std::chrono::duration<long long, std::micro>", "std::chrono::microseconds"},
	{"std::chrono::duration<long long, std::milli>", "std::chrono::milliseconds"},
	{"std::chrono::duration<double, >", "std::chrono::duration<double>"},
}

// basicStringAliases maps the four standard character types to their short
// basic_string alias.
var basicStringAliases = map[string]string{
	"char":     "std::string",
	"wchar_t":  "std::wstring",
	"char16_t": "std::u16string",
	"char32_t": "std::u32string",
}

// abiNamespaces are ABI-version sub-namespaces folded into their parent,
// e.g. "std::__1::" (libc++) and "std::__cxx11::" (libstdc++ dual ABI).
// Folded before foldBasicString runs, so "std::__cxx11::basic_string<"
// is reduced to "std::basic_string<" before that rule's marker matches.
var abiNamespaces = []string{"__1", "__cxx11", "__cxx20"}

// CanonicalizeFunctionName rewrites fn by the fixed ordered set of textual
// substitutions described above and returns the result. An empty or
// already-canonical name is returned unchanged.
func CanonicalizeFunctionName(fn string) string {
	if fn == "" {
		return fn
	}
	for _, s := range templateWhitespace {
		fn = strings.ReplaceAll(fn, s.old, s.new)
	}
	fn = foldABINamespaces(fn)
	for _, s := range ratioAliases {
		fn = strings.ReplaceAll(fn, s.old, s.new)
	}
	for _, s := range durationAliases {
		fn = strings.ReplaceAll(fn, s.old, s.new)
	}
	fn = foldBasicString(fn)
	fn = stripAllocators(fn)
	return fn
}

// foldBasicString rewrites every "std::basic_string<CharT,...>" occurrence
// into its short alias. The template argument list is matched by a
// balanced <> scan rather than a regex, since it may itself contain nested
// template arguments (allocator<CharT>, char_traits<CharT>) with their own
// commas. Must run after foldABINamespaces so "std::__cxx11::basic_string<"
// has already collapsed to "std::basic_string<" and the whole "std::"
// prefix is consumed by the replacement, rather than left dangling.
func foldBasicString(fn string) string {
	const marker = "std::basic_string<"
	for {
		idx := strings.Index(fn, marker)
		if idx < 0 {
			return fn
		}
		argsStart := idx + len(marker)
		end := matchAngle(fn, argsStart-1)
		if end < 0 {
			return fn
		}
		args := fn[argsStart:end]
		charT := firstTemplateArg(args)
		alias, ok := basicStringAliases[strings.TrimSpace(charT)]
		if !ok {
			alias = marker + args + ">"
		}
		fn = fn[:idx] + alias + fn[end+1:]
	}
}

// matchAngle returns the index of the '>' that closes the '<' at open,
// accounting for nesting, or -1 if unbalanced.
func matchAngle(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '<':
			depth++
		case '>':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func firstTemplateArg(args string) string {
	depth := 0
	for i, c := range args {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				return args[:i]
			}
		}
	}
	return args
}

// stripAllocators removes ", std::allocator<T>" occurring just before the
// closing '>' of an enclosing template argument list, the spelling libc++
// and libstdc++ both emit for vector<T, std::allocator<T>> and friends once
// the allocator is the default one.
func stripAllocators(fn string) string {
	const marker = "std::allocator<"
	for {
		idx := strings.Index(fn, marker)
		if idx < 0 {
			return fn
		}
		end := matchAngle(fn, idx+len(marker)-1)
		if end < 0 {
			return fn
		}
		start := idx
		// Absorb a preceding ", " so the surrounding argument list doesn't
		// end up with a dangling separator.
		if start >= 2 && fn[start-2:start] == ", " {
			start -= 2
		}
		fn = fn[:start] + fn[end+1:]
	}
}

func foldABINamespaces(fn string) string {
	for _, ns := range abiNamespaces {
		fn = strings.ReplaceAll(fn, "std::"+ns+"::", "std::")
	}
	return fn
}
