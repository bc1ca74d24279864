package chatbot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

func TestFindSymptom(t *testing.T) {
	tests := []struct {
		msg  string
		want string
	}{
		{"I have a HEADACHE since morning", "headache"},
		{"my back pain is bad", "back pain"},
		{"cough and fever", "cough"},
		{"fever and cough", "cough"},
		{"sharp pain in my spine", "back pain"},
		{"pain in lower back", "back pain"},
		{"spine feels stiff", ""},
		{"runny nose", "cold"},
		{"keep sneezing", "cold"},
		{"high temperature", "fever"},
		{"mujhe bukhar hai", "fever"},
		{"belly ache", "stomach pain"},
		{"pet dard", "stomach pain"},
		{"scratchy throat", "sore throat"},
		{"sore throat", "sore throat"},
		{"my knee hurts", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, FindSymptom(tt.msg))
		})
	}
}

func TestReply_Topic(t *testing.T) {
	got, err := NewService().Reply("Severe headache")
	require.NoError(t, err)

	want := "I understand you have headache. Here's what I can tell you:\n\n" +
		"🔍 Possible Causes:\n1. Stress\n2. Dehydration\n3. Eye strain\n4. Lack of sleep\n" +
		"\n💡 Self-Care Tips:\n1. Rest in dark room\n2. Cold compress\n3. Stay hydrated\n4. Sleep regularly\n" +
		"\n⚠️ See a Doctor If:\n1. Sudden severe headache\n2. Fever with headache\n3. Vision changes\n4. After head injury\n" +
		"\n🏥 Important: This is general advice only. Please consult a doctor for proper diagnosis.\n\nCan I help with anything else?"
	assert.Equal(t, want, got)
}

func TestReply_Fallback(t *testing.T) {
	got, err := NewService().Reply("hello there")
	require.NoError(t, err)
	assert.Equal(t, "I can help with these symptoms:\n\n• Back pain\n• Cough\n• Headache\n• Fever\n• Stomach pain\n• Cold\n• Sore throat\n\nPlease describe your symptoms in detail.\n\nFor serious issues, please consult a doctor immediately.", got)
}

func TestReply_EmptyMessage(t *testing.T) {
	_, err := NewService().Reply("  ")
	assert.True(t, errors.Is(err, errors.ErrValidation))
}
