// Package styles provides the shared lipgloss styles for CLI output.
package styles

import (
	"github.com/charmbracelet/glamour/ansi"
	glamourstyles "github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"

	"github.com/hay-kot/postsync/internal/core/notify"
	"github.com/hay-kot/postsync/internal/core/post"
)

// Tokyo Night palette.
var (
	ColorPrimary    = lipgloss.Color("#7aa2f7")
	ColorSecondary  = lipgloss.Color("#7dcfff")
	ColorForeground = lipgloss.Color("#c0caf5")
	ColorMuted      = lipgloss.Color("#565f89")
	ColorBackground = lipgloss.Color("#1a1b26")
	ColorSurface    = lipgloss.Color("#3b4261")
	ColorSuccess    = lipgloss.Color("#9ece6a")
	ColorWarning    = lipgloss.Color("#e0af68")
	ColorError      = lipgloss.Color("#f7768e")
	ColorPurple     = lipgloss.Color("#bb9af7")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)
	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorForeground).
			Bold(true)
	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorError)
	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning)
	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorSuccess)
)

var badgeBase = lipgloss.NewStyle().
	Padding(0, 1).
	Foreground(ColorBackground).
	Bold(true)

// StatusColor returns the badge color for a status.
func StatusColor(s post.Status) lipgloss.Color {
	switch s {
	case post.StatusPublished:
		return ColorSuccess
	case post.StatusDraft:
		return ColorWarning
	case post.StatusArchived:
		return ColorMuted
	default:
		return ColorSurface
	}
}

// StatusBadge renders a status as a colored pill.
func StatusBadge(s post.Status) string {
	return badgeBase.Background(StatusColor(s)).Render(string(s))
}

// LevelStyle returns the style used for a notification level.
func LevelStyle(l notify.Level) lipgloss.Style {
	switch l {
	case notify.LevelSuccess:
		return SuccessStyle
	case notify.LevelWarning:
		return WarningStyle
	case notify.LevelError:
		return ErrorStyle
	default:
		return lipgloss.NewStyle().Foreground(ColorPurple)
	}
}

func hexPtr(c lipgloss.Color) *string {
	s := string(c)
	return &s
}

// GlamourStyle returns a Glamour style config derived from the palette.
func GlamourStyle() ansi.StyleConfig {
	cfg := glamourstyles.DarkStyleConfig

	fg := hexPtr(ColorForeground)
	primary := hexPtr(ColorPrimary)
	secondary := hexPtr(ColorSecondary)
	muted := hexPtr(ColorMuted)

	cfg.Document.Color = fg
	cfg.Paragraph.Color = fg

	cfg.Heading.Color = primary
	cfg.H1.Color = fg
	cfg.H1.BackgroundColor = hexPtr(ColorSurface)
	cfg.H2.Color = primary
	cfg.H3.Color = primary

	cfg.BlockQuote.Color = muted
	cfg.HorizontalRule.Color = muted

	cfg.Link.Color = secondary
	cfg.LinkText.Color = secondary

	cfg.Code.Color = secondary
	cfg.CodeBlock.Color = muted

	return cfg
}
