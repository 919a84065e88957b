// Package gmail implements a Transport that talks to the Gmail REST API.
package gmail

// profileResponse is the users.getProfile response.
type profileResponse struct {
	EmailAddress string `json:"emailAddress"`
}

// sendRequest is the users.messages.send request body.
type sendRequest struct {
	Raw string `json:"raw"`
}

// draftRequest is the users.drafts.create request body.
type draftRequest struct {
	Message sendRequest `json:"message"`
}

// listResponse is the users.messages.list response.
type listResponse struct {
	Messages []messageRef `json:"messages"`
}

// messageRef identifies one message in a list response.
type messageRef struct {
	ID       string `json:"id"`
	ThreadID string `json:"threadId"`
}

// messageResponse is the users.messages.get response, reduced to the fields
// the reconciler consumes.
type messageResponse struct {
	ID           string         `json:"id"`
	Snippet      string         `json:"snippet"`
	InternalDate string         `json:"internalDate"`
	Payload      messagePayload `json:"payload"`
}

// messagePayload carries the parsed headers of a fetched message.
type messagePayload struct {
	Headers []messageHeader `json:"headers"`
}

// messageHeader is a single name/value header pair.
type messageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// apiErrorResponse represents an error response from the Gmail API.
type apiErrorResponse struct {
	Error apiError `json:"error"`
}

// apiError is the error detail in a Gmail API error response.
type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}
