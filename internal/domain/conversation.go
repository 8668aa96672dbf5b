package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Rating is the tri-state user judgment on an answer.
type Rating int

// Possible rating values.
const (
	RatingNegative Rating = -1
	RatingUnset    Rating = 0
	RatingPositive Rating = 1
)

// titleLimit is the number of question characters used for the auto-generated title.
const titleLimit = 30

// Common validation errors for Conversation
var (
	ErrEmptyConversationID     = errors.New("conversation ID cannot be empty")
	ErrEmptyConversationUserID = errors.New("conversation user ID cannot be empty")
	ErrEmptySessionID          = errors.New("conversation session ID cannot be empty")
	ErrEmptyQuestion           = errors.New("conversation question cannot be empty")
	ErrInvalidRating           = errors.New("rating must be -1, 0 or 1")
)

// Conversation is one persisted question/answer exchange. It is immutable
// after creation except for the rating and the title, which the owner may
// change through the session endpoints.
type Conversation struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	SessionID  string     `json:"session_id"`
	Question   string     `json:"question"`
	Answer     string     `json:"answer"`
	FileID     *uuid.UUID `json:"file_id,omitempty"`
	TokenUsage int        `json:"token_usage"`
	Rating     Rating     `json:"rating"`
	Title      string     `json:"title"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewConversation creates a Conversation for the given exchange. It generates
// the record ID, derives a short title from the question and stamps the
// creation time. Returns an error if validation fails.
func NewConversation(
	userID uuid.UUID,
	sessionID, question, answer string,
	fileID *uuid.UUID,
	tokenUsage int,
) (*Conversation, error) {
	c := &Conversation{
		ID:         uuid.New(),
		UserID:     userID,
		SessionID:  sessionID,
		Question:   question,
		Answer:     answer,
		FileID:     fileID,
		TokenUsage: tokenUsage,
		Rating:     RatingUnset,
		Title:      deriveTitle(question),
		CreatedAt:  time.Now().UTC(),
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate checks if the Conversation has valid data.
func (c *Conversation) Validate() error {
	if c.ID == uuid.Nil {
		return ErrEmptyConversationID
	}

	if c.UserID == uuid.Nil {
		return ErrEmptyConversationUserID
	}

	if c.SessionID == "" {
		return ErrEmptySessionID
	}

	if c.Question == "" {
		return ErrEmptyQuestion
	}

	if !isValidRating(c.Rating) {
		return ErrInvalidRating
	}

	return nil
}

// Rate sets the rating. Returns an error for values outside the tri-state range.
func (c *Conversation) Rate(r Rating) error {
	if !isValidRating(r) {
		return ErrInvalidRating
	}

	c.Rating = r
	return nil
}

// deriveTitle builds the short display title from the question text.
func deriveTitle(question string) string {
	runes := []rune(question)
	if len(runes) <= titleLimit {
		return question
	}
	return string(runes[:titleLimit]) + "..."
}

// isValidRating checks if the given value is a valid Rating.
func isValidRating(r Rating) bool {
	switch r {
	case RatingNegative, RatingUnset, RatingPositive:
		return true
	default:
		return false
	}
}
