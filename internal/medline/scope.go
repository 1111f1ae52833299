// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package medline

// scope names one nesting region the cursor can be inside.
type scope uint8

const (
	scopeAuthorList scope = 1 << iota
	scopeAuthor
	scopeReferenceList
	scopeReference
	scopeArticle
)

// scopeSet is the set of regions currently open. The zero value is empty.
type scopeSet uint8

func (s scopeSet) has(sc scope) bool { return s&scopeSet(sc) != 0 }

func (s scopeSet) with(sc scope) scopeSet { return s | scopeSet(sc) }

func (s scopeSet) without(sc scope) scopeSet { return s &^ scopeSet(sc) }

// openers maps a scope-opening tag to the scope it opens.
var openers = map[string]scope{
	TagAuthorList:    scopeAuthorList,
	TagAuthor:        scopeAuthor,
	TagReferenceList: scopeReferenceList,
	TagReference:     scopeReference,
	TagArticleBody:   scopeArticle,
}

// parents lists scopes that may only open inside another scope.
var parents = map[scope]scope{
	scopeAuthor:    scopeAuthorList,
	scopeReference: scopeReferenceList,
}
