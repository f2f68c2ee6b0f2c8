package bot

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const pendingLimit = 10

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	command := message.Command()
	b.recorder.RecordCommand(command)

	switch command {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "projects":
		b.handleProjects(ctx, message)
	case "newproject":
		b.handleNewProject(ctx, message)
	case "nextsteps":
		b.handleNextSteps(ctx, message)
	case "search":
		b.handleSearch(ctx, message)
	case "status":
		b.handleStatus(ctx, message)
	case "pending":
		b.handlePending(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to Council Bot! 🧭
Send me notes, ideas and findings. I'll classify them, extract the key knowledge and link it to your projects.

Create a project with /newproject, then just keep talking.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/projects - List active projects
/newproject <name> | <description> - Create a project
/nextsteps <project name> - Suggest research next steps
/search <query> - Search saved knowledge
/status <project name> <status> - Set status (active, on_hold, completed, archived)
/pending - Show messages that were not fully processed

Any other message is classified and saved.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleProjects(ctx context.Context, message *tgbotapi.Message) {
	projects, err := b.uc.ListProjects.Execute(ctx)
	if err != nil {
		b.replyError(message.Chat.ID, "projects", err, "Sorry, failed to retrieve your projects. Please try again later.")
		return
	}
	if len(projects) == 0 {
		b.sendMessage(message.Chat.ID, "There are no active projects yet. Create one with /newproject <name> | <description>.")
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatProjects(projects))
}

func (b *Bot) handleNewProject(ctx context.Context, message *tgbotapi.Message) {
	name, description, ok := parseNewProjectArgs(message.CommandArguments())
	if !ok {
		b.sendMessage(message.Chat.ID, "Usage: /newproject <name> | <description>")
		return
	}

	project, err := b.uc.CreateProject.Execute(ctx, name, description)
	if err != nil {
		b.replyError(message.Chat.ID, "newproject", err, "Sorry, I couldn't create the project.")
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatProjectCreated(project))
}

func (b *Bot) handleNextSteps(ctx context.Context, message *tgbotapi.Message) {
	name := message.CommandArguments()
	if name == "" {
		b.sendMessage(message.Chat.ID, "Usage: /nextsteps <project name>")
		return
	}

	project, err := b.uc.FindProject.Execute(ctx, name)
	if err != nil {
		b.replyError(message.Chat.ID, "nextsteps", err, "Sorry, I couldn't look up that project.")
		return
	}

	suggestions, err := b.uc.GetNextSteps.Execute(ctx, project.ID)
	if err != nil {
		b.replyError(message.Chat.ID, "nextsteps", err, "Sorry, I couldn't generate next steps.")
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatSuggestions(project, suggestions))
}

func (b *Bot) handleSearch(ctx context.Context, message *tgbotapi.Message) {
	query := message.CommandArguments()
	if query == "" {
		b.sendMessage(message.Chat.ID, "Usage: /search <query>")
		return
	}

	entries, err := b.uc.SearchKnowledge.Execute(ctx, query, b.searchLimit)
	if err != nil {
		b.replyError(message.Chat.ID, "search", err, "Sorry, the search failed. Please try again later.")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(message.Chat.ID, "Nothing found.")
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatKnowledge(query, entries))
}

func (b *Bot) handleStatus(ctx context.Context, message *tgbotapi.Message) {
	name, status, ok := parseStatusArgs(message.CommandArguments())
	if !ok {
		b.sendMessage(message.Chat.ID, "Usage: /status <project name> <active|on_hold|completed|archived>")
		return
	}

	project, err := b.uc.SetProjectStatus.Execute(ctx, name, status)
	if err != nil {
		b.replyError(message.Chat.ID, "status", err, "Sorry, I couldn't update the project.")
		return
	}
	b.sendMarkdown(message.Chat.ID, message.MessageID, formatStatusChanged(project))
}

func (b *Bot) handlePending(ctx context.Context, message *tgbotapi.Message) {
	msgs, err := b.uc.PendingMessages.Execute(ctx, pendingLimit)
	if err != nil {
		b.replyError(message.Chat.ID, "pending", err, "Sorry, I couldn't load pending messages.")
		return
	}
	if len(msgs) == 0 {
		b.sendMessage(message.Chat.ID, "All messages have been processed.")
		return
	}
	b.sendMarkdown(message.Chat.ID, 0, formatPending(msgs))
}
