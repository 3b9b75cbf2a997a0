// Package chat implements generation.Provider for HTTP chat-completion
// vendors. One Adapter serves every vendor; a Profile captures the
// differences in endpoint, auth headers, request body and reply shape.
package chat
