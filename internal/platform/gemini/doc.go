// Package gemini implements generation.Provider on Google's Gemini API
// through the google.golang.org/genai SDK.
//
// The provider sends the same instruction prompt as the chat vendors and
// parses replies with generation.Parser, so callers cannot tell the vendors
// apart except by id.
package gemini
