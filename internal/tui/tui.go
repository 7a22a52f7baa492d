package tui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/passtheace/internal/deck"
	"github.com/lox/passtheace/internal/game"
	"github.com/lox/passtheace/internal/server"
)

// Actions are the requests the table can make of the server
type Actions interface {
	StartGame() error
	Keep() error
	Pass() error
}

// ServerMsg carries a message from the server into the program
type ServerMsg struct {
	Message *server.Message
}

// DisconnectedMsg tells the model the connection is gone
type DisconnectedMsg struct{}

// Model is the Bubble Tea model of one seat at a table
type Model struct {
	actions Actions
	logger  *log.Logger

	// UI components
	logViewport viewport.Model
	gameLog     []string

	// Table state, all of it from the server
	selfID     string
	roomCode   string
	options    string
	players    []game.Participant
	currentID  string
	dealerSeat int
	round      int
	timeoutMs  int64
	inGame     bool
	revealed   bool
	lastError  string

	// Dimensions
	width    int
	height   int
	quitting bool
}

// New creates the table model
func New(actions Actions, logger *log.Logger) *Model {
	vp := viewport.New(10, 5)
	vp.SetContent("")

	return &Model{
		actions:     actions,
		logger:      logger.WithPrefix("tui"),
		logViewport: vp,
		dealerSeat:  -1,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages in the TUI
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.quitting = true
			return m, tea.Quit
		case "k":
			m.act("keep", m.actions.Keep)
			return m, nil
		case "p":
			m.act("pass", m.actions.Pass)
			return m, nil
		case "s":
			if m.inGame {
				return m, nil
			}
			if err := m.actions.StartGame(); err != nil {
				m.AddLogEntry(ErrorStyle.Render("Could not start: " + err.Error()))
			}
			return m, nil
		}

	case ServerMsg:
		m.apply(msg.Message)
		return m, nil

	case DisconnectedMsg:
		m.AddLogEntry(ErrorStyle.Render("Disconnected from server"))
		m.quitting = true
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m *Model) act(name string, send func() error) {
	if !m.MyTurn() {
		m.AddLogEntry(InfoStyle.Render("Not your turn"))
		return
	}
	if err := send(); err != nil {
		m.AddLogEntry(ErrorStyle.Render(fmt.Sprintf("Could not %s: %v", name, err)))
	}
}

// MyTurn reports whether this seat is expected to act
func (m *Model) MyTurn() bool {
	return m.inGame && !m.revealed && m.selfID != "" && m.currentID == m.selfID
}

// apply folds one server message into the table state
func (m *Model) apply(msg *server.Message) {
	m.logger.Debug("Server message", "type", msg.Type)

	switch msg.Type {
	case server.MessageTypeConnected:
		var data server.ConnectedData
		if m.decode(msg, &data) {
			m.selfID = data.PlayerID
		}

	case server.MessageTypeRoomCreated:
		var data server.RoomCreatedData
		if m.decode(msg, &data) {
			m.AddLogEntry(SuccessStyle.Render("Created room " + data.RoomCode))
		}

	case server.MessageTypeRoomJoined:
		var data server.RoomJoinedData
		if m.decode(msg, &data) {
			m.roomCode = data.RoomCode
			m.players = data.Players
			m.options = fmt.Sprintf("%s · %d seats · %s · %s", data.Options.Mode, data.Options.Seats, data.Options.Pace, data.Options.BuyIn())
			m.AddLogEntry(fmt.Sprintf("Joined room %s in seat %d", data.RoomCode, data.Player.Seat))
		}

	case server.MessageTypePlayerList:
		var data server.PlayerListData
		if m.decode(msg, &data) {
			m.players = data.Players
		}

	case server.MessageType(game.EventTypeGameStarted):
		var data game.GameStartedEvent
		if m.decode(msg, &data) {
			m.inGame = true
			m.revealed = false
			m.players = data.Participants
			m.currentID = data.CurrentID
			m.dealerSeat = data.DealerSeat
			m.round = data.Round
			m.AddLogEntry(SuccessStyle.Render("Game started"))
		}

	case server.MessageType(game.EventTypeTurnUpdate):
		var data game.TurnUpdateEvent
		if m.decode(msg, &data) {
			if data.Round != m.round {
				m.AddLogEntry(InfoStyle.Render(fmt.Sprintf("--- Round %d ---", data.Round)))
			}
			m.inGame = true
			m.revealed = false
			m.players = data.Participants
			m.currentID = data.CurrentPlayerID
			m.dealerSeat = data.DealerSeat
			m.round = data.Round
			m.timeoutMs = data.TimeoutMs
			m.lastError = ""
		}

	case server.MessageType(game.EventTypeCardPassed):
		var data game.CardPassedEvent
		if m.decode(msg, &data) {
			m.AddLogEntry(fmt.Sprintf("%s passed to %s", m.seatName(data.FromSeat), m.seatName(data.ToSeat)))
		}

	case server.MessageType(game.EventTypeTimeout):
		var data game.TimeoutEvent
		if m.decode(msg, &data) {
			m.AddLogEntry(fmt.Sprintf("%s ran out of time and will %s", m.seatName(data.Seat), data.Action))
		}

	case server.MessageType(game.EventTypeRoundEnded):
		var data game.RoundEndedEvent
		if m.decode(msg, &data) {
			m.revealed = true
			m.players = data.Participants
			m.logRoundEnd(data)
		}

	case server.MessageType(game.EventTypeGameOver):
		var data game.GameOverEvent
		if m.decode(msg, &data) {
			m.inGame = false
			m.currentID = ""
			m.AddLogEntry(SuccessStyle.Render(fmt.Sprintf("%s wins after %d rounds! Press s to play again", data.Winner.Name, data.Rounds)))
		}

	case server.MessageType(game.EventTypeGameAborted):
		var data game.GameAbortedEvent
		if m.decode(msg, &data) {
			m.inGame = false
			m.currentID = ""
			m.AddLogEntry(ErrorStyle.Render("Game aborted: " + data.Reason))
		}

	case server.MessageType(game.EventTypePlayerLeft):
		var data game.PlayerLeftEvent
		if m.decode(msg, &data) {
			m.AddLogEntry(fmt.Sprintf("%s left the table", m.seatName(data.Seat)))
		}

	case server.MessageTypeError:
		var data server.ErrorData
		if m.decode(msg, &data) {
			m.lastError = data.Message
			m.AddLogEntry(ErrorStyle.Render(data.Message))
		}
	}
}

func (m *Model) decode(msg *server.Message, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		m.logger.Warn("Failed to decode message", "type", msg.Type, "error", err)
		return false
	}
	return true
}

func (m *Model) logRoundEnd(data game.RoundEndedEvent) {
	if data.Voided {
		m.AddLogEntry(fmt.Sprintf("Round %d voided, nobody loses a life", data.Round))
		return
	}
	for _, l := range data.Losers {
		entry := fmt.Sprintf("%s loses %d with %s", l.Name, l.LivesLost, l.Card)
		if l.Out {
			entry += " and is out"
		}
		m.AddLogEntry(entry)
	}
}

func (m *Model) seatName(seat int) string {
	for _, p := range m.players {
		if p.Seat == seat {
			return p.Name
		}
	}
	return fmt.Sprintf("seat %d", seat)
}

// AddLogEntry appends an entry to the game log and scrolls to it
func (m *Model) AddLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	if m.logViewport.Height > 0 && m.logViewport.Width > 0 {
		m.logViewport.GotoBottom()
	}
}

// Log returns the game log
func (m *Model) Log() []string {
	return append([]string(nil), m.gameLog...)
}

func (m *Model) resize() {
	tableHeight := len(m.players) + 6
	m.logViewport.Width = max(m.width-2, 1)
	m.logViewport.Height = max(m.height-tableHeight-6, 1)
}

// View renders the TUI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	m.resize()

	header := HeaderStyle.Render("Pass the Ace")
	if m.roomCode != "" {
		header += " " + InfoStyle.Render(fmt.Sprintf("room %s · %s", m.roomCode, m.options))
	}

	table := PaneStyle.Width(max(m.width-2, 1)).Render(m.renderTable())
	logPane := PaneStyle.Width(max(m.width-2, 1)).Render(m.logViewport.View())

	return lipgloss.JoinVertical(lipgloss.Left, header, table, logPane, m.renderHelp())
}

func (m *Model) renderTable() string {
	var b strings.Builder

	if m.inGame {
		b.WriteString(fmt.Sprintf("Round %d", m.round))
		if m.MyTurn() {
			b.WriteString("  " + ActionsStyle.Render("Your turn"))
			if m.timeoutMs > 0 {
				b.WriteString(InfoStyle.Render(fmt.Sprintf(" (%ds)", m.timeoutMs/1000)))
			}
		}
		b.WriteString("\n\n")
	} else {
		b.WriteString(InfoStyle.Render("Waiting for the game to start") + "\n\n")
	}

	for _, p := range m.players {
		b.WriteString(m.renderSeat(p))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) renderSeat(p game.Participant) string {
	marker := "  "
	if m.inGame && p.ID == m.currentID && !m.revealed {
		marker = "▶ "
	}
	dealer := " "
	if m.inGame && p.Seat == m.dealerSeat {
		dealer = "D"
	}

	name := p.Name
	if p.ID == m.selfID {
		name += " (you)"
	}
	if !p.Human {
		name += " [bot]"
	}
	name = fmt.Sprintf("%-22s", name)

	switch {
	case p.Eliminated:
		name = EliminatedStyle.Render(name)
	case p.ID == m.currentID && m.inGame && !m.revealed:
		name = CurrentSeatStyle.Render(name)
	}

	lives := LivesStyle.Render(strings.Repeat("♥", max(p.Lives, 0)))
	return fmt.Sprintf("%s%s %d %s %-4s %s", marker, dealer, p.Seat, name, m.renderCard(p), lives)
}

// renderCard shows this seat's own card, and every card once a round is
// revealed
func (m *Model) renderCard(p game.Participant) string {
	if p.Card == nil {
		return ""
	}
	if p.ID != m.selfID && !m.revealed {
		return HiddenCardStyle.Render("??")
	}
	return formatCard(*p.Card)
}

func formatCard(c deck.Card) string {
	if c.IsRed() {
		return RedCardStyle.Render(c.String())
	}
	return BlackCardStyle.Render(c.String())
}

func (m *Model) renderHelp() string {
	var keys []string
	switch {
	case m.MyTurn():
		keys = append(keys, "k keep", "p pass")
	case !m.inGame && m.roomCode != "":
		keys = append(keys, "s start")
	}
	keys = append(keys, "↑↓ scroll", "q quit")

	help := InfoStyle.Render(strings.Join(keys, " • "))
	if m.lastError != "" {
		help = ErrorStyle.Render(m.lastError) + "  " + help
	}
	return help
}
