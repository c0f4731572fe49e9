package service

import "math/rand"

// surprisePrompts seed "surprise me" stories with cross-cultural premises.
var surprisePrompts = []string{
	"A cyberpunk detective in Neo-Tokyo discovers jazz music holds the key to solving crimes",
	"A vintage vinyl collector in Paris finds love through shared passion for indie music",
	"A classical musician in Vienna discovers hip-hop culture changes their perspective on tradition",
	"A street artist in Berlin combines graffiti with ancient calligraphy techniques",
	"A tea ceremony master in Kyoto incorporates modern electronic music into traditional rituals",
	"A fashion designer in Milan finds inspiration in ancient tribal patterns and modern streetwear",
	"A chef in New Orleans blends Creole traditions with molecular gastronomy",
	"A photographer in Morocco captures the intersection of traditional markets and digital commerce",
}

func randomSurprisePrompt() string {
	return surprisePrompts[rand.Intn(len(surprisePrompts))]
}
