// Package composer implements the page composition stage.
//
// Markdown bodies are rendered to HTML with goldmark. Every body then passes
// the bluemonday allow-list in Sanitize, and goquery prunes images the asset
// report marks broken. The page carries the design assignment so the deploy
// collaborator can render it without consulting the taxonomy.
package composer
