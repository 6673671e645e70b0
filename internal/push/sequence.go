package push

import (
	"context"
	"fmt"
	"log"
	"time"
)

// etcDir is where Windows keeps the HOSTS file.
const etcDir = `C:\Windows\System32\drivers\etc`

const backupTimeFormat = "2006-01-02-15-04-05"

// Step is one remote command in the push sequence. Admin steps go through the
// privileged RTR command endpoint.
type Step struct {
	Name    string
	Base    string
	Command string
	Admin   bool
}

// Steps builds the fixed command sequence that installs fileName as the HOSTS
// file. The rename to a timestamped backup in step two is the only rollback
// the run has: an aborted run leaves the original recoverable by an operator.
func Steps(fileName string, now time.Time) []Step {
	backup := "hosts." + now.UTC().Format(backupTimeFormat) + ".backup"

	steps := []Step{
		{Name: "cd", Base: "cd", Command: "cd " + etcDir},
		{Name: "backup", Base: "mv", Command: "mv hosts " + backup},
		{Name: "upload", Base: "put", Command: "put " + fileName, Admin: true},
	}

	if fileName != "hosts" {
		steps = append(steps, Step{Name: "rename", Base: "mv", Command: "mv " + fileName + " hosts"})
	}

	steps = append(steps,
		Step{Name: "grant", Base: "runscript", Command: "runscript -Raw=```icacls hosts /grant *S-1-1-0:RX```", Admin: true},
		Step{Name: "flushdns", Base: "runscript", Command: "runscript -Raw=```ipconfig /flushdns```", Admin: true},
	)

	return steps
}

// CommandExecutor is the slice of the RTR API the sequencer needs.
type CommandExecutor interface {
	BatchInitSessions(ctx context.Context, hostIDs []string, queueOffline bool) (string, error)
	BatchCommand(ctx context.Context, batchID, base, command string) error
	BatchAdminCommand(ctx context.Context, batchID, base, command string) error
}

// Sequencer runs a step list against one batch session, strictly in order,
// aborting on the first step the API does not accept. Already-issued steps
// are not rolled back.
type Sequencer struct {
	exec CommandExecutor
}

func NewSequencer(exec CommandExecutor) *Sequencer {
	return &Sequencer{exec: exec}
}

func (s *Sequencer) Run(ctx context.Context, hostIDs []string, steps []Step) error {
	// Offline hosts are queued by the platform and receive the commands when
	// they reconnect; the run does not wait on or verify that delivery.
	batchID, err := s.exec.BatchInitSessions(ctx, hostIDs, true)
	if err != nil {
		return fmt.Errorf("initiate batch session: %w", err)
	}
	if batchID == "" {
		return fmt.Errorf("unable to initiate batch session with hosts")
	}

	log.Printf("Initiated RTR batch with id %s", batchID)

	for _, step := range steps {
		if step.Admin {
			err = s.exec.BatchAdminCommand(ctx, batchID, step.Base, step.Command)
		} else {
			err = s.exec.BatchCommand(ctx, batchID, step.Base, step.Command)
		}
		if err != nil {
			return fmt.Errorf("%s command: %w", step.Name, err)
		}

		log.Printf("-- Command: %s", step.Command)
	}

	return nil
}
