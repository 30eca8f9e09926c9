package fieldmask

import (
	"slices"

	"bookclub/pkg/domain"
)

// Updatable fields per entity. Identifiers and ownerId are never listed.
var (
	PersonFields = []string{"email", "nickname", "pronouns"}
	BookFields   = []string{"title", "author", "isbn"}
	ClubFields   = []string{"name", "description", "contentWarnings", "currentBook.title", "currentBook.author", "currentBook.isbn"}
)

// CurrentBookPrefix namespaces the embedded book inside a club mask.
const CurrentBookPrefix = "currentBook"

// MergePerson applies update onto current under mask.
func MergePerson(current, update domain.Person, mask Mask) domain.Person {
	out := current
	if mask.Includes("email") {
		out.Email = update.Email
	}
	if mask.Includes("nickname") {
		out.Nickname = update.Nickname
	}
	if mask.Includes("pronouns") {
		out.Pronouns = domain.CollapseString(update.Pronouns)
	}
	return out
}

// MergeBook applies update onto current under mask.
func MergeBook(current, update domain.Book, mask Mask) domain.Book {
	out := current
	if mask.Includes("title") {
		out.Title = update.Title
	}
	if mask.Includes("author") {
		out.Author = domain.CollapseString(update.Author)
	}
	if mask.Includes("isbn") {
		out.ISBN = domain.CollapseString(update.ISBN)
	}
	return out
}

// MergeClub applies update onto current under mask. Entries prefixed with
// "currentBook." are routed to MergeBook. Content warnings are replaced
// wholesale.
func MergeClub(current, update domain.Club, mask Mask) domain.Club {
	out := current
	out.ContentWarnings = slices.Clone(current.ContentWarnings)
	if mask.Includes("name") {
		out.Name = update.Name
	}
	if mask.Includes("description") {
		out.Description = update.Description
	}
	if mask.Includes("contentWarnings") {
		out.ContentWarnings = slices.Clone(update.ContentWarnings)
		if out.ContentWarnings == nil {
			out.ContentWarnings = []string{}
		}
	}
	out.CurrentBook = MergeBook(current.CurrentBook, update.CurrentBook, mask.Nested(CurrentBookPrefix))
	return out
}
