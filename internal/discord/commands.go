package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func userOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionUser, Name: name, Description: desc, Required: required}
}

func intOpt(name, desc string, required bool) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionInteger, Name: name, Description: desc, Required: required}
}

func subOpt(name, desc string, opts ...*discordgo.ApplicationCommandOption) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{Type: discordgo.ApplicationCommandOptionSubCommand, Name: name, Description: desc, Options: opts}
}

// Commands returns the registered slash commands.
func Commands() []*discordgo.ApplicationCommand {
	wager := intOpt("amount", "Money to wager", false)
	return []*discordgo.ApplicationCommand{
		{
			Name:        "battle",
			Description: "Fight another player",
			Options:     []*discordgo.ApplicationCommandOption{wager, userOpt("opponent", "Who to challenge; empty for anyone", false)},
		},
		{
			Name:        "raidbattle",
			Description: "Fight another player together with your pet",
			Options:     []*discordgo.ApplicationCommandOption{wager, userOpt("opponent", "Who to challenge; empty for anyone", false)},
		},
		{
			Name:        "raidbattle2v2",
			Description: "Two teams of two fight with their pets",
			Options: []*discordgo.ApplicationCommandOption{
				userOpt("teammate", "Your teammate", true),
				userOpt("opponent1", "First opponent", true),
				userOpt("opponent2", "Second opponent", true),
				wager,
			},
		},
		{Name: "horde", Description: "Fight waves of monsters until you fall"},
		{Name: "adventure", Description: "Fight a monster of your level"},
		{
			Name:        "tower",
			Description: "The battle tower",
			Options: []*discordgo.ApplicationCommandOption{
				subOpt("start", "Enter the tower"),
				subOpt("fight", "Fight your current floor"),
				subOpt("progress", "Show your tower progress"),
			},
		},
		{
			Name:        "slots",
			Description: "The slot machine",
			Options: []*discordgo.ApplicationCommandOption{
				subOpt("join", "Take a seat", intOpt("seat", "Seat number", true)),
				subOpt("spin", "Spin the reels"),
				subOpt("leave", "Leave your seat"),
				subOpt("seats", "Show all seats"),
			},
		},
	}
}

// ParseCommand flattens interaction data into a Command.
func ParseCommand(data discordgo.ApplicationCommandInteractionData, userID, channelID string) Command {
	cmd := Command{
		Name:      data.Name,
		UserID:    userID,
		ChannelID: channelID,
		Users:     map[string]string{},
		Ints:      map[string]int64{},
	}
	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		cmd.Sub = opts[0].Name
		opts = opts[0].Options
	}
	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionUser:
			cmd.Users[o.Name] = fmt.Sprint(o.Value)
		case discordgo.ApplicationCommandOptionInteger:
			cmd.Ints[o.Name] = o.IntValue()
		}
	}
	return cmd
}
