package service

import (
	"fmt"
	"math/rand"
)

var usernameAdjectives = []string{
	"Swift", "Brave", "Clever", "Bold", "Wise",
	"Quick", "Silent", "Bright", "Lucky", "Mighty",
	"Happy", "Calm", "Wild", "Free", "True",
	"Noble", "Proud", "Smart", "Cool", "Fast",
}

var usernameNouns = []string{
	"Coder", "Hacker", "Dev", "Ninja", "Wizard",
	"Master", "Builder", "Creator", "Engineer", "Architect",
	"Guru", "Expert", "Pro", "Legend", "Hero",
	"Champion", "Tiger", "Dragon", "Phoenix", "Wolf",
}

var avatarColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DFE6E9", "#74B9FF", "#A29BFE", "#FD79A8", "#FDCB6E",
}

// GenerateUsername produces names like Swift_Coder_42.
func GenerateUsername() string {
	return fmt.Sprintf("%s_%s_%d",
		usernameAdjectives[rand.Intn(len(usernameAdjectives))],
		usernameNouns[rand.Intn(len(usernameNouns))],
		rand.Intn(1000))
}

func GenerateColor() string {
	return avatarColors[rand.Intn(len(avatarColors))]
}
