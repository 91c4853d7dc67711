// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxAuthorsLength = 150

var yearPattern = regexp.MustCompile(`\d{4}`)

// Name is a person's name split into family and given parts.
type Name struct {
	Family string
	Given  string
}

// ParseAuthorName splits a name written either "Family, Given" or
// "Given Family". Single-token names have no given part.
func ParseAuthorName(name string) Name {
	name = strings.TrimSpace(name)
	if name == "" {
		return Name{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return Name{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return Name{Family: name}
	}
	return Name{
		Given:  strings.TrimSpace(name[:idx]),
		Family: name[idx+1:],
	}
}

// APA renders the name as "Family, G. M.".
func (n Name) APA() string {
	var initials []string
	for _, part := range strings.Fields(n.Given) {
		r, _ := utf8.DecodeRuneInString(part)
		initials = append(initials, string(r)+".")
	}
	if len(initials) == 0 {
		return n.Family
	}
	return n.Family + ", " + strings.Join(initials, " ")
}

// FormatAuthors renders an author list for an APA reference, truncated to
// 150 characters.
func FormatAuthors(authors []string) string {
	var parts []string
	for _, a := range authors {
		n := ParseAuthorName(a)
		if n.Family == "" {
			continue
		}
		parts = append(parts, n.APA())
	}
	if len(parts) == 0 {
		return "No listed authors"
	}
	s := strings.Join(parts, ", ")
	if utf8.RuneCountInString(s) > maxAuthorsLength {
		return string([]rune(s)[:maxAuthorsLength-3]) + "..."
	}
	return s
}

// YearOf extracts the first four-digit year from a date string.
func YearOf(date string) string {
	return yearPattern.FindString(date)
}

// APACitation builds "Authors (year). Title. Publisher." with "n.d." for an
// unknown year.
func APACitation(authors []string, year, title, publisher string) string {
	if year == "" {
		year = "n.d."
	}
	pub := ""
	if publisher = strings.TrimSpace(publisher); publisher != "" {
		pub = strings.TrimSuffix(publisher, ".") + "."
	}
	title = strings.TrimSuffix(strings.TrimSpace(title), ".")
	return strings.TrimSpace(FormatAuthors(authors) + " (" + year + "). " + title + ". " + pub)
}
