// Package seo implements the SEO optimization stage: title (60 runes),
// description (160 runes), ASCII slug, up to ten keywords, language and Open
// Graph tags.
package seo
