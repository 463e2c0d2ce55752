package cli

import (
	"fmt"
	"strings"

	"github.com/neumerance/kerberos-swarm/internal/models"
)

type OperationResult struct {
	Message   string            `json:"message"`
	Operation *models.Operation `json:"operation"`
}

// Operation reports a finished compose call. Captured stdout is echoed in text mode.
func Operation(f *Formatter, op *models.Operation, message string) error {
	if f.json {
		return f.JSON(OperationResult{Message: message, Operation: op})
	}

	if op != nil {
		if out := strings.TrimSpace(op.Stdout); out != "" {
			f.Println(out)
		}
	}
	f.Success("%s", message)
	return nil
}

// Started reports a detached start and where each agent can be reached.
func Started(f *Formatter, op *models.Operation, cameras []models.Camera) error {
	if f.json {
		return f.JSON(map[string]interface{}{
			"message":   "cameras started",
			"operation": op,
			"cameras":   cameras,
		})
	}

	f.Success("Started %d camera agents", len(cameras))
	for _, cam := range cameras {
		f.Info("%s: http://localhost:%d", cam.Name, cam.WebPort)
	}
	return nil
}

// Check is one line of the prerequisite report.
type Check struct {
	Name     string `json:"name"`
	OK       bool   `json:"ok"`
	Detail   string `json:"detail"`
	Optional bool   `json:"optional,omitempty"`
}

// Checks prints the prerequisite report and returns whether every
// required check passed.
func Checks(f *Formatter, checks []Check) (bool, error) {
	passed := true
	for _, c := range checks {
		if !c.OK && !c.Optional {
			passed = false
		}
	}

	if f.json {
		return passed, f.JSON(map[string]interface{}{
			"checks": checks,
			"passed": passed,
		})
	}

	f.Header("System Requirements")
	w := f.table()
	for _, c := range checks {
		mark := f.style(f.ok, "ok")
		switch {
		case !c.OK && c.Optional:
			mark = f.style(f.warn, "warn")
		case !c.OK:
			mark = f.style(f.fail, "fail")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", mark, c.Name, c.Detail)
	}
	if err := w.Flush(); err != nil {
		return passed, err
	}

	f.Println()
	if passed {
		f.Success("All requirements met")
	} else {
		f.Error("Some requirements are missing")
	}
	return passed, nil
}
