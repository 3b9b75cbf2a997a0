// Package prompt renders the image prompt for a literacy poster from a topic,
// a title and a vocabulary.
package prompt
