package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// ID is a Canvas identifier. The API returns strings when asked for
// canvas-string-ids but some endpoints still send numbers.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("canvas: ID is neither string nor number")
	}
	*id = ID(n.String())
	return nil
}

// String returns the identifier.
func (id ID) String() string {
	return string(id)
}

// Course is a Canvas course.
type Course struct {
	ID            ID      `json:"id"`
	Name          string  `json:"name"`
	CourseCode    string  `json:"course_code"`
	SyllabusBody  *string `json:"syllabus_body"`
	HTMLURL       string  `json:"html_url"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	WorkflowState string  `json:"workflow_state"`
}

// Syllabus returns the syllabus HTML, empty when absent.
func (c Course) Syllabus() string {
	if c.SyllabusBody == nil {
		return ""
	}
	return *c.SyllabusBody
}

// Page is a wiki page. List responses omit Body.
type Page struct {
	PageID    ID     `json:"page_id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Published bool   `json:"published"`
	FrontPage bool   `json:"front_page"`
}

// Module is a course module.
type Module struct {
	ID       ID     `json:"id"`
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// ModuleItem is an entry inside a module.
type ModuleItem struct {
	ID             ID             `json:"id"`
	Title          string         `json:"title"`
	Type           string         `json:"type"`
	Position       int            `json:"position"`
	HTMLURL        string         `json:"html_url"`
	Text           string         `json:"text"`
	ContentDetails ContentDetails `json:"content_details"`
	CreatedAt      string         `json:"created_at"`
	UpdatedAt      string         `json:"updated_at"`
}

// ContentDetails holds the optional embedded content of a module item.
type ContentDetails struct {
	Body string `json:"body"`
}

// Assignment is a course assignment.
type Assignment struct {
	ID              ID          `json:"id"`
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	HTMLURL         string      `json:"html_url"`
	CreatedAt       string      `json:"created_at"`
	UpdatedAt       string      `json:"updated_at"`
	DueAt           *string     `json:"due_at"`
	PointsPossible  *float64    `json:"points_possible"`
	SubmissionTypes []string    `json:"submission_types"`
	Published       bool        `json:"published"`
	Rubric          []Criterion `json:"rubric"`
}

// Criterion is one rubric row.
type Criterion struct {
	ID          ID       `json:"id"`
	Description string   `json:"description"`
	Points      *float64 `json:"points"`
}

// User is the author summary embedded in discussions.
type User struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
}

// DiscussionTopic is a discussion or announcement.
type DiscussionTopic struct {
	ID             ID     `json:"id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
	HTMLURL        string `json:"html_url"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
	PostedAt       string `json:"posted_at"`
	DiscussionType string `json:"discussion_type"`
	IsAnnouncement bool   `json:"is_announcement"`
	Author         User   `json:"author"`
}

// DiscussionEntry is a reply in a discussion.
type DiscussionEntry struct {
	ID            ID                `json:"id"`
	UserID        ID                `json:"user_id"`
	UserName      string            `json:"user_name"`
	Message       string            `json:"message"`
	CreatedAt     string            `json:"created_at"`
	UpdatedAt     string            `json:"updated_at"`
	RecentReplies []DiscussionEntry `json:"recent_replies"`
}

// File is a course file.
type File struct {
	ID          ID     `json:"id"`
	DisplayName string `json:"display_name"`
	Filename    string `json:"filename"`
	ContentType string `json:"content-type"`
	MIMEClass   string `json:"mime_class"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// MIMEType returns the content type, falling back to the MIME class.
func (f File) MIMEType() string {
	if f.ContentType != "" {
		return f.ContentType
	}
	return f.MIMEClass
}

// errorBody is the Canvas error envelope.
type errorBody struct {
	Errors  json.RawMessage `json:"errors"`
	Message string          `json:"message"`
}

// parseErrorBody extracts a message from a Canvas error response.
func parseErrorBody(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if eb.Message != "" {
		return eb.Message
	}
	var list []struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(eb.Errors, &list); err == nil {
		msgs := make([]string, 0, len(list))
		for _, e := range list {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
