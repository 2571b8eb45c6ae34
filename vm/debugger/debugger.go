// Package debugger implements an interactive step-debugger for the
// VM, rendered with bubbletea/bubbles/lipgloss and persisting
// breakpoints through a yaml config file.
package debugger

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/glulx-go/glulx/vm"
)

// Config is the on-disk debugger state: breakpoints set by a prior
// session, persisted so they survive a restart.
type Config struct {
	Breakpoints []uint32 `yaml:"breakpoints"`
}

// LoadConfig reads a Config from path. A missing file is not an
// error: it yields an empty Config, matching a first-run debugger.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes cfg back to path as yaml.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	pcStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	faultStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
)

type model struct {
	v          *vm.VM
	cfg        *Config
	configPath string
	quitting   bool
	status     string

	// stackPane is a scrollable viewport over the call-stack snapshot,
	// since a deeply recursive story can produce more frames than fit
	// on screen at once; arrow/pgup/pgdown keys scroll it directly.
	stackPane viewport.Model
}

// Run drives an interactive debugger session over v, loading/saving
// breakpoints at configPath.
func Run(v *vm.VM, configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}
	if v.State() == vm.StateLoaded {
		if err := v.Init(); err != nil {
			return err
		}
	}
	m := model{
		v:          v,
		cfg:        cfg,
		configPath: configPath,
		status:     "loaded; space=step, c=continue, b=toggle breakpoint at PC, up/down=scroll stack, q=quit",
		stackPane:  viewport.New(78, 8),
	}
	p := tea.NewProgram(m)
	_, err = p.Run()
	return err
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.stackPane.Width = msg.Width - 2
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			m.cfg.Save(m.configPath)
			return m, tea.Quit
		case " ", "s":
			if m.v.IsRunning() {
				m.v.Step()
				m.status = fmt.Sprintf("stepped to 0x%08X", m.v.PC())
			} else {
				m.status = "halted"
			}
			return m, nil
		case "c":
			for m.v.IsRunning() && !m.atBreakpoint() {
				m.v.Step()
			}
			m.status = fmt.Sprintf("stopped at 0x%08X", m.v.PC())
			return m, nil
		case "b":
			m.toggleBreakpoint(m.v.PC())
			return m, nil
		}
		var cmd tea.Cmd
		m.stackPane, cmd = m.stackPane.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *model) atBreakpoint() bool {
	pc := m.v.PC()
	for _, bp := range m.cfg.Breakpoints {
		if bp == pc {
			return true
		}
	}
	return false
}

func (m *model) toggleBreakpoint(addr uint32) {
	for i, bp := range m.cfg.Breakpoints {
		if bp == addr {
			m.cfg.Breakpoints = append(m.cfg.Breakpoints[:i], m.cfg.Breakpoints[i+1:]...)
			m.status = fmt.Sprintf("removed breakpoint at 0x%08X", addr)
			return
		}
	}
	m.cfg.Breakpoints = append(m.cfg.Breakpoints, addr)
	m.status = fmt.Sprintf("set breakpoint at 0x%08X", addr)
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("glulx debugger"))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("state: "))
	b.WriteString(m.v.State().String())
	b.WriteString("\n")
	if err := m.v.Err(); err != nil {
		b.WriteString(faultStyle.Render(err.Error()))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("next instructions:"))
	b.WriteString("\n")
	pc := m.v.PC()
	for i := 0; i < 6 && m.v.IsRunning(); i++ {
		text, next := vm.Disassemble(m.v.Memory(), pc)
		line := "  " + text
		if pc == m.v.PC() {
			line = pcStyle.Render("> " + text)
		}
		b.WriteString(line)
		b.WriteString("\n")
		pc = next
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("call stack:"))
	b.WriteString("\n")
	var stackText strings.Builder
	for i, f := range m.v.Stack().Snapshot() {
		fmt.Fprintf(&stackText, "#%d base=0x%X frame_len=%d operand_len=%d\n", i, f.Base, f.FrameLen, f.OperandLen)
	}
	m.stackPane.SetContent(dimStyle.Render(stackText.String()))
	b.WriteString(m.stackPane.View())
	b.WriteString("\n")

	if len(m.cfg.Breakpoints) > 0 {
		b.WriteString(headerStyle.Render("breakpoints: "))
		for _, bp := range m.cfg.Breakpoints {
			b.WriteString(fmt.Sprintf("0x%08X ", bp))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(dimStyle.Render(m.status))
	return b.String()
}
