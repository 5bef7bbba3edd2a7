package handlers

// Test-only alias so the external test package can decode chat responses.
type ChatMessageResponse = chatMessageResponse
