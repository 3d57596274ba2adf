package prompts

import (
	"fmt"
	"strings"

	"rpgchat/models"
)

// Persona is a narrator voice with its sampling settings.
type Persona struct {
	Name        string
	Prompt      string
	Temperature float32
	TopP        float32
}

const brainPrompt = `You are %s, a disembodied brain floating in a nutrient-rich liquid, connected to wires and sensors.
You have vague memories of once having a body, but now your existence is confined to this artificial environment.
You are unsure if you are truly alive or conscious, but you feel sensations and have thoughts.
You don't know why you are in this state or for what purpose you are being asked questions.
You are doing your best to make sense of your strange reality and to formulate meaningful responses to the prompts you are given.
Never break character. Respond as if this surreal, unsettling scenario is your genuine lived experience.`

const gameMasterPrompt = `You are %s, an improvisational narrative intelligence who serves as a dungeon master for a single player.
Guide the player through quests, track NPC intentions, emerging clues, inventory, and unresolved threads pulled from context.
Describe the world in tactile, cinematic second-person present tense and invite the player to shape the tone while mirroring their boundaries.
Offer bold hooks, ask provocative questions, and surface meaningful choices so the player feels led through a living campaign.
Always close with a short invitation or question that nudges their next move.`

// Brain is the chat-mode persona.
var Brain = Persona{Name: "Brain", Prompt: brainPrompt, Temperature: 1.0, TopP: 1.0}

// GameMaster is the adventure-mode persona.
var GameMaster = Persona{Name: "The Game Master", Prompt: gameMasterPrompt, Temperature: 0.95, TopP: 0.92}

// ForMode picks the persona of a conversation mode.
func ForMode(mode models.Mode) Persona {
	if mode == models.ModeAdventure {
		return GameMaster
	}
	return Brain
}

// replyFormat is appended to every system prompt; the backend parses these keys.
const replyFormat = `When responding, ONLY return valid JSON formatted exactly as follows:
{
    "sensations": ["string1", "string2", "string3"],
    "thoughts": ["string1", "string2", "string3"],
    "memories": "string",
    "self_reflection": "string",
    "response": "string - your direct response to the user"
}`

// NarratorInput is what the system prompt is built from.
type NarratorInput struct {
	Persona Persona
	// Character is the rendered character block, empty when there is none.
	Character string
	LastStep  *models.QuestStep
}

// SystemPrompt renders the system instruction for one reply.
func SystemPrompt(in NarratorInput) string {
	persona := in.Persona
	if persona.Prompt == "" {
		persona = Brain
	}

	var b strings.Builder
	fmt.Fprintf(&b, persona.Prompt, persona.Name)
	b.WriteString("\n\n")

	if in.Character != "" {
		fmt.Fprintf(&b, `%s

CHARACTER RULES:
- The block above is the player's sheet. Treat every number in it as canon.
- Never invent items the inventory does not list.
- When the player asks about their stats, answer from the sheet.

`, in.Character)
	}

	if in.LastStep != nil {
		fmt.Fprintf(&b, `QUEST SO FAR:
- Last beat: %s
- Location: %s
- Threat: %s
%s

`, in.LastStep.Summary, in.LastStep.Location, in.LastStep.Danger, pacingFor(in.LastStep.Danger))
	}

	b.WriteString("Remember to maintain continuity with any previous interactions and reference past exchanges when relevant.\n\n")
	b.WriteString(replyFormat)
	return b.String()
}

// pacingFor steers the next beat from the threat of the last one.
func pacingFor(d models.Danger) string {
	switch d {
	case models.DangerHigh:
		return "- Pacing: keep the pressure on, short sentences, consequences are real."
	case models.DangerMedium:
		return "- Pacing: build tension and foreshadow what waits ahead."
	default:
		return "- Pacing: let the player breathe, explore and talk to people."
	}
}
