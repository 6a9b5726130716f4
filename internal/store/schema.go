package store

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableLLMEvents = "llm_request_events"
	tablePractice  = "practice_sessions"
)

var (
	// LLMRequestEventsColumns holds the columns for the "llm_request_events" table.
	LLMRequestEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "sequence", Type: field.TypeInt64, Unique: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt},
		{Name: "output_tokens", Type: field.TypeInt},
		{Name: "latency_ms", Type: field.TypeInt64},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Nullable: true},
		{Name: "request_body", Type: field.TypeString, Size: 2147483647, Nullable: true},
		{Name: "response_body", Type: field.TypeString, Size: 2147483647, Nullable: true},
	}
	// LLMRequestEventsTable holds the schema information for the "llm_request_events" table.
	LLMRequestEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    LLMRequestEventsColumns,
		PrimaryKey: []*schema.Column{LLMRequestEventsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "llmrequestevent_purpose",
				Unique:  false,
				Columns: []*schema.Column{LLMRequestEventsColumns[5]},
			},
		},
	}

	// PracticeSessionsColumns mirrors the hosted practice_sessions table,
	// plus level and question for local inspection.
	PracticeSessionsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString, Size: 36},
		{Name: "user_id", Type: field.TypeString, Size: 36},
		{Name: "book_id", Type: field.TypeString, Size: 36},
		{Name: "insight_id", Type: field.TypeString, Size: 36},
		{Name: "submitted_at", Type: field.TypeTime},
		{Name: "level", Type: field.TypeInt},
		{Name: "question", Type: field.TypeString, Size: 2147483647},
		{Name: "response_text", Type: field.TypeString, Size: 2147483647},
		{Name: "llm_feedback", Type: field.TypeJSON},
		{Name: "eval_score", Type: field.TypeFloat64},
		{Name: "user_feedback_score", Type: field.TypeInt, Nullable: true},
		{Name: "auto_difficulty_next", Type: field.TypeString},
	}
	// PracticeSessionsTable holds the schema information for the "practice_sessions" table.
	PracticeSessionsTable = &schema.Table{
		Name:       tablePractice,
		Columns:    PracticeSessionsColumns,
		PrimaryKey: []*schema.Column{PracticeSessionsColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:    "practicesession_user_id_submitted_at",
				Unique:  false,
				Columns: []*schema.Column{PracticeSessionsColumns[1], PracticeSessionsColumns[4]},
			},
		},
	}

	// Tables holds all the tables in the schema.
	Tables = []*schema.Table{
		LLMRequestEventsTable,
		PracticeSessionsTable,
	}
)
