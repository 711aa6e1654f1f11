package nlp

import (
	"testing"
)

func TestExtractor_Extract(t *testing.T) {
	e := NewExtractor()

	tests := []struct {
		name        string
		text        string
		wantEntity  string
		wantTopic   string
		wantIntent  string
	}{
		{
			name:       "topic_after_about",
			text:       "what have we discussed about kubernetes recently",
			wantTopic:  "kubernetes",
			wantIntent: "history_query",
		},
		{
			name:       "quoted_entity",
			text:       `summarize the "release planning" discussions`,
			wantEntity: "release planning",
			wantIntent: "topic_summary",
		},
		{
			name:       "capitalized_entity",
			text:       "who talks about Python the most",
			wantEntity: "Python",
			wantTopic:  "Python",
			wantIntent: "user_search",
		},
		{
			name: "nothing_extractable",
			text: "are you there",
		},
		{
			name:      "topic_stopwords_trimmed",
			text:      "tell me about the deployment",
			wantTopic: "deployment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Extract(tt.text)

			if tt.wantEntity != "" {
				found := false
				for _, ent := range got.Entities {
					if ent.Text == tt.wantEntity {
						found = true
					}
				}
				if !found {
					t.Errorf("entities = %v, want to contain %q", got.Entities, tt.wantEntity)
				}
			} else if len(got.Entities) != 0 {
				t.Errorf("entities = %v, want none", got.Entities)
			}

			if tt.wantTopic != "" {
				found := false
				for _, topic := range got.Topics {
					if topic == tt.wantTopic {
						found = true
					}
				}
				if !found {
					t.Errorf("topics = %v, want to contain %q", got.Topics, tt.wantTopic)
				}
			}

			if got.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", got.Intent, tt.wantIntent)
			}
		})
	}
}
