package ui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ngmaloney/forecast-terminal/internal/pipeline"
)

// Message types for async operations

// provisioningStartedMsg carries the channels of a running provisioning job.
type provisioningStartedMsg struct {
	progressChan <-chan string
	resultChan   <-chan error
}

// provisionStatusMsg is one progress line from provisioning.
type provisionStatusMsg string

// provisionResultMsg is sent once provisioning finished.
type provisionResultMsg struct {
	err error
}

// cycleFinishedMsg is sent by the pipeline after every cycle.
type cycleFinishedMsg struct {
	report pipeline.Report
}

// ProvisionFunc prepares local data (e.g. the coastline basemap), reporting
// progress on the channel.
type ProvisionFunc func(ctx context.Context, progress chan<- string) error

// initiateProvisioning starts fn in the background.
func initiateProvisioning(fn ProvisionFunc) tea.Cmd {
	return func() tea.Msg {
		progress := make(chan string, 16)
		result := make(chan error, 1)
		go func() {
			defer close(progress)
			result <- fn(context.Background(), progress)
		}()
		return provisioningStartedMsg{progressChan: progress, resultChan: result}
	}
}

func waitForProvisionStatus(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return provisionStatusMsg(msg)
	}
}

func waitForProvisionResult(ch <-chan error) tea.Cmd {
	return func() tea.Msg {
		return provisionResultMsg{err: <-ch}
	}
}

// ProgramPublisher forwards pipeline reports into a running program.
type ProgramPublisher struct {
	program *tea.Program
}

func NewProgramPublisher(p *tea.Program) *ProgramPublisher {
	return &ProgramPublisher{program: p}
}

// Publish implements pipeline.Publisher. It returns once the event loop has
// accepted the message or the program has exited.
func (p *ProgramPublisher) Publish(r pipeline.Report) {
	p.program.Send(cycleFinishedMsg{report: r})
}
