// Package chatbot answers symptom questions from a fixed knowledge base.
package chatbot

import (
	"fmt"
	"strings"

	"github.com/jwalitptl/medinfo-api/pkg/errors"
)

type topic struct {
	name     string
	causes   []string
	tips     []string
	warnings []string
}

// Matched in this order.
var topics = []topic{
	{
		name:     "back pain",
		causes:   []string{"Muscle strain", "Poor posture", "Lack of exercise", "Disc problems"},
		tips:     []string{"Apply ice for 48 hours", "Use heat therapy after", "Do gentle stretches", "Maintain good posture"},
		warnings: []string{"Pain > 2 weeks", "Severe pain", "Leg numbness", "Fever with pain"},
	},
	{
		name:     "cough",
		causes:   []string{"Cold/flu", "Allergies", "Asthma", "Acid reflux"},
		tips:     []string{"Stay hydrated", "Honey tea", "Gargle salt water", "Steam inhalation"},
		warnings: []string{"Cough > 3 weeks", "Blood in cough", "Chest pain", "High fever"},
	},
	{
		name:     "headache",
		causes:   []string{"Stress", "Dehydration", "Eye strain", "Lack of sleep"},
		tips:     []string{"Rest in dark room", "Cold compress", "Stay hydrated", "Sleep regularly"},
		warnings: []string{"Sudden severe headache", "Fever with headache", "Vision changes", "After head injury"},
	},
	{
		name:     "fever",
		causes:   []string{"Viral infection", "Bacterial infection", "Heat exhaustion"},
		tips:     []string{"Rest well", "Drink lots of water", "Lukewarm bath", "Light clothing"},
		warnings: []string{"Temp > 103°F", "Fever > 3 days", "Difficulty breathing", "Severe headache"},
	},
	{
		name:     "stomach pain",
		causes:   []string{"Indigestion", "Food poisoning", "Gastritis", "Constipation"},
		tips:     []string{"Drink clear fluids", "Ginger tea", "Bland foods", "Avoid spicy food"},
		warnings: []string{"Severe pain", "Blood in stool", "Fever", "Hard abdomen"},
	},
	{
		name:     "cold",
		causes:   []string{"Viral infection", "Weak immunity", "Weather changes"},
		tips:     []string{"Rest well", "Warm fluids", "Steam inhalation", "Vitamin C foods"},
		warnings: []string{"Symptoms > 10 days", "High fever", "Ear pain", "Breathing difficulty"},
	},
	{
		name:     "sore throat",
		causes:   []string{"Viral infection", "Bacterial infection", "Allergies", "Dry air"},
		tips:     []string{"Gargle salt water", "Honey tea", "Stay hydrated", "Use humidifier"},
		warnings: []string{"Severe pain", "Fever > 101°F", "White patches", "Swollen neck"},
	},
}

const fallbackReply = "I can help with these symptoms:\n\n" +
	"• Back pain\n• Cough\n• Headache\n• Fever\n• Stomach pain\n• Cold\n• Sore throat\n\n" +
	"Please describe your symptoms in detail.\n\n" +
	"For serious issues, please consult a doctor immediately."

const disclaimer = "\n🏥 Important: This is general advice only. Please consult a doctor for proper diagnosis.\n\nCan I help with anything else?"

// Service is stateless and safe for concurrent use.
type Service struct {
	byName map[string]*topic
}

func NewService() *Service {
	byName := make(map[string]*topic, len(topics))
	for i := range topics {
		byName[topics[i].name] = &topics[i]
	}
	return &Service{byName: byName}
}

// Reply answers a message. An empty message is a validation error.
func (s *Service) Reply(message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.Validation("Message required")
	}
	name := FindSymptom(message)
	if name == "" {
		return fallbackReply, nil
	}
	return render(s.byName[name]), nil
}

// FindSymptom returns the matching topic name, or "" when nothing matches.
func FindSymptom(message string) string {
	msg := strings.ToLower(message)
	for _, t := range topics {
		if strings.Contains(msg, t.name) {
			return t.name
		}
	}

	has := func(subs ...string) bool {
		for _, sub := range subs {
			if strings.Contains(msg, sub) {
				return true
			}
		}
		return false
	}
	switch {
	case has("pain") && has("spine", "lower back"):
		return "back pain"
	case has("nose", "sneez"):
		return "cold"
	case has("temperature", "bukhar"):
		return "fever"
	case has("belly", "pet"):
		return "stomach pain"
	case has("throat"):
		return "sore throat"
	}
	return ""
}

func render(t *topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "I understand you have %s. Here's what I can tell you:\n\n", t.name)

	section := func(title string, items []string) {
		b.WriteString(title)
		b.WriteString("\n")
		for i, item := range items {
			fmt.Fprintf(&b, "%d. %s\n", i+1, item)
		}
	}
	section("🔍 Possible Causes:", t.causes)
	b.WriteString("\n")
	section("💡 Self-Care Tips:", t.tips)
	b.WriteString("\n")
	section("⚠️ See a Doctor If:", t.warnings)
	b.WriteString(disclaimer)
	return b.String()
}
