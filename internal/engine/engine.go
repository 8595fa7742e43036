package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pankaj-dahiya-devops/iacguard/internal/graph"
	"github.com/pankaj-dahiya-devops/iacguard/internal/models"
	"github.com/pankaj-dahiya-devops/iacguard/internal/policy"
	"github.com/pankaj-dahiya-devops/iacguard/internal/suppression"
)

// DefaultThreshold is the gate threshold used for both categories when
// neither the options nor the policy set one.
const DefaultThreshold = models.SeverityHigh

// Input is everything a scan reads. All of it is loaded into memory by the
// caller before Scan is called; the engine performs no I/O.
type Input struct {
	// Declarations is the parsed resource tree. nil means the caller could
	// not parse anything and fails the run with a MalformedInputError.
	Declarations []graph.Declaration

	// Files is the raw text handed to the secret scanner.
	Files []models.SourceFile

	// Suppressions is the externally authored ignore list.
	Suppressions []suppression.Entry

	// Policy may be nil.
	Policy *policy.PolicyConfig

	// Now decides suppression expiry. Zero means time.Now().
	Now time.Time
}

// Options configures a DefaultEngine.
type Options struct {
	// Workers bounds rule and secret scanning goroutines. <= 0 uses NumCPU.
	Workers int

	// MisconfigThreshold and SecretThreshold take precedence over the
	// policy's enforcement block. Empty falls back to the policy, then to
	// DefaultThreshold.
	MisconfigThreshold models.Severity
	SecretThreshold    models.Severity

	// DisableSecrets skips the secret scanner entirely.
	DisableSecrets bool

	Logger *zap.Logger
}

// Engine is the central orchestration interface. It turns one Input into a
// complete ScanReport.
//
// Only a MalformedInputError or cancellation is returned as an error. Every
// other problem is folded into the report's findings, so a failed gate and a
// failed run are always distinguishable.
type Engine interface {
	Scan(ctx context.Context, in Input) (*models.ScanReport, error)
}
