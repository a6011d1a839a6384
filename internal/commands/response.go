package commands

import (
	"github.com/bwmarrin/discordgo"
)

const maxMessageLen = 2000

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: truncate(content)},
	})
}

func respondSimple(s *discordgo.Session, i *discordgo.InteractionCreate, err error, ok string) {
	if err != nil {
		respondText(s, i, err.Error())
		return
	}
	respondText(s, i, ok)
}

// deferResponse acknowledges a slow command; the answer follows with
// editResponse.
func deferResponse(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) error {
	content = truncate(content)
	_, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content})
	return err
}

func truncate(content string) string {
	r := []rune(content)
	if len(r) <= maxMessageLen {
		return content
	}
	return string(r[:maxMessageLen-1]) + "…"
}
