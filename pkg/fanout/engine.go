// Package fanout implements the core resolution engine: given one
// configured operation and the caller's execution context, it decides
// which concrete per-user or machine locations the operation applies
// to, checks privilege for each, applies it, and reports one result
// per resolved action.
package fanout

import (
	stderrors "errors"
	"io/fs"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/peruse-deploy/peruse/pkg/classify"
	"github.com/peruse-deploy/peruse/pkg/errors"
	"github.com/peruse-deploy/peruse/pkg/filesystem"
	"github.com/peruse-deploy/peruse/pkg/logging"
	"github.com/peruse-deploy/peruse/pkg/profiles"
	"github.com/peruse-deploy/peruse/pkg/registry"
	"github.com/peruse-deploy/peruse/pkg/types"
)

// Options contains configuration for the engine
type Options struct {
	FS         types.FS
	Registry   types.Registry
	Enumerator *profiles.Enumerator
	Classifier *classify.Classifier

	// Logger overrides the engine's component logger. Leave nil to log
	// through the global logger.
	Logger *zerolog.Logger
}

// Engine resolves and applies operations. Resolution state lives only
// for the duration of one Apply call; profiles are re-enumerated
// every time.
type Engine struct {
	fs         types.FS
	reg        types.Registry
	enum       *profiles.Enumerator
	classifier *classify.Classifier
	logger     zerolog.Logger
}

// New creates a new engine instance
func New(opts Options) *Engine {
	f := opts.FS
	if f == nil {
		f = filesystem.NewOS()
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.OS()
	}
	enum := opts.Enumerator
	if enum == nil {
		enum = profiles.New(reg, f)
	}
	cls := opts.Classifier
	if cls == nil {
		cls = classify.New()
	}
	logger := logging.GetLogger("fanout")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Engine{fs: f, reg: reg, enum: enum, classifier: cls, logger: logger}
}

// ApplyFile resolves and applies one file operation. The returned
// error is non-nil only for hard failures that must abort the run;
// the results always describe every resolved action, in enumeration
// order.
func (e *Engine) ApplyFile(op types.FileOp, ctx types.ExecutionContext) ([]types.OperationResult, error) {
	// A missing copy source is fatal before any mutation anywhere.
	if op.Kind == types.FileOpCopy {
		if _, err := e.fs.Stat(op.Source); err != nil {
			return nil, errors.Wrapf(err, errors.ErrNotFound, "source file %s does not exist", op.Source)
		}
	}

	actions, skip, err := e.resolveFile(op, ctx)
	if err != nil {
		return nil, err
	}
	if skip != types.SkipNone {
		result := types.OperationResult{Skip: skip}
		e.logResult(string(op.Kind), result)
		return []types.OperationResult{result}, nil
	}

	return e.applyAll(string(op.Kind), actions, ctx, func(action types.ResolvedAction) error {
		return e.applyFileAction(op, action)
	})
}

// ApplyRegistry resolves and applies one registry entry operation.
func (e *Engine) ApplyRegistry(op types.RegistryOp, ctx types.ExecutionContext) ([]types.OperationResult, error) {
	actions, skip, err := e.resolveRegistry(op, ctx)
	if err != nil {
		return nil, err
	}
	if skip != types.SkipNone {
		result := types.OperationResult{Skip: skip}
		e.logResult(string(op.Action), result)
		return []types.OperationResult{result}, nil
	}

	return e.applyAll(string(op.Action), actions, ctx, func(action types.ResolvedAction) error {
		return e.applyRegistryAction(op, action)
	})
}

// resolveFile expands a file target into concrete actions. Fan-out
// happens only when the caller is the system account AND the target
// carries a placeholder token; every other combination resolves to a
// single action. In particular, a fixed path that textually resembles
// a profile directory is never iterated per profile.
func (e *Engine) resolveFile(op types.FileOp, ctx types.ExecutionContext) ([]types.ResolvedAction, types.SkipReason, error) {
	template := classify.IsPerUserTemplate(op.Destination)

	if !template {
		return e.single(string(op.Destination)), types.SkipNone, nil
	}

	if !ctx.IsSystemAccount {
		roots, err := classify.CallerRoots()
		if err != nil {
			return nil, types.SkipNone, err
		}
		return e.single(classify.Substitute(op.Destination, roots)), types.SkipNone, nil
	}

	users, err := e.enum.FilesystemProfiles()
	if err != nil {
		// A missing audience is not fatal to the rest of the run.
		e.logger.Warn().Err(err).Msg("Profile enumeration failed, treating audience as empty")
		return nil, types.SkipNoProfiles, nil
	}
	if len(users) == 0 {
		return nil, types.SkipNoProfiles, nil
	}

	actions := make([]types.ResolvedAction, 0, len(users))
	for _, u := range users {
		path := classify.Substitute(op.Destination, classify.RootsForProfile(u))
		actions = append(actions, types.ResolvedAction{
			Path:              path,
			SID:               u.SID,
			RequiresElevation: e.classifier.RequiresElevation(path),
		})
	}
	return actions, types.SkipNone, nil
}

// resolveRegistry expands a registry target. HKCU-rooted keys are the
// per-user form; under the system account they fan out across loaded
// hives, otherwise they apply to the caller's own hive.
func (e *Engine) resolveRegistry(op types.RegistryOp, ctx types.ExecutionContext) ([]types.ResolvedAction, types.SkipReason, error) {
	if !classify.IsPerUserKey(op.Key) || !ctx.IsSystemAccount {
		return e.single(string(op.Key)), types.SkipNone, nil
	}

	users, err := e.enum.RegistryProfiles()
	if err != nil {
		e.logger.Warn().Err(err).Msg("Hive enumeration failed, treating audience as empty")
		return nil, types.SkipNoProfiles, nil
	}
	if len(users) == 0 {
		return nil, types.SkipNoProfiles, nil
	}

	actions := make([]types.ResolvedAction, 0, len(users))
	for _, u := range users {
		path := classify.SubstituteKey(op.Key, u.SID)
		actions = append(actions, types.ResolvedAction{
			Path:              path,
			SID:               u.SID,
			RequiresElevation: e.classifier.RequiresElevation(path),
		})
	}
	return actions, types.SkipNone, nil
}

func (e *Engine) single(path string) []types.ResolvedAction {
	return []types.ResolvedAction{{
		Path:              path,
		SID:               types.CallerIdentity,
		RequiresElevation: e.classifier.RequiresElevation(path),
	}}
}

// applyAll runs the resolved actions strictly in order. A protected
// location without admin rights is a hard failure: the offending
// result is recorded, the error returned, and nothing after it runs.
func (e *Engine) applyAll(kind string, actions []types.ResolvedAction, ctx types.ExecutionContext, apply func(types.ResolvedAction) error) ([]types.OperationResult, error) {
	results := make([]types.OperationResult, 0, len(actions))

	for _, action := range actions {
		if action.RequiresElevation && !ctx.HasAdminRights {
			result := types.OperationResult{
				Action:  action,
				ErrKind: types.ErrKindAccessDenied,
				Err:     errors.Newf(errors.ErrAccessDenied, "%s is a protected location and the caller lacks administrator rights", action.Path),
			}
			results = append(results, result)
			e.logResult(kind, result)
			return results, result.Err
		}

		result := types.OperationResult{Action: action}
		if err := apply(action); err != nil {
			result.ErrKind = kindOf(err)
			result.Err = err
		} else {
			result.Succeeded = true
		}
		results = append(results, result)
		e.logResult(kind, result)

		if result.Err != nil {
			return results, result.Err
		}
	}
	return results, nil
}

func (e *Engine) applyFileAction(op types.FileOp, action types.ResolvedAction) error {
	switch op.Kind {
	case types.FileOpCopy:
		data, err := e.fs.ReadFile(op.Source)
		if err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to read source file %s", op.Source)
		}
		if err := e.fs.MkdirAll(filepath.Dir(action.Path), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to create directory for %s", action.Path)
		}
		if err := e.fs.WriteFile(action.Path, data, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrIO, "failed to write %s", action.Path)
		}
		return nil

	case types.FileOpDelete:
		err := e.fs.Remove(action.Path)
		if err != nil && !isNotExist(err) {
			return errors.Wrapf(err, errors.ErrIO, "failed to remove %s", action.Path)
		}
		return nil
	}
	return errors.Newf(errors.ErrUnsupported, "unsupported file operation %q", op.Kind)
}

func (e *Engine) applyRegistryAction(op types.RegistryOp, action types.ResolvedAction) error {
	switch op.Action {
	case types.RegActionSet:
		return e.reg.SetValue(action.Path, op.Name, op.Value)
	case types.RegActionDeleteValue:
		return e.reg.DeleteValue(action.Path, op.Name)
	case types.RegActionDeleteKey:
		return e.reg.DeleteKey(action.Path)
	}
	return errors.Newf(errors.ErrUnsupported, "unsupported registry action %q", op.Action)
}

func (e *Engine) logResult(kind string, result types.OperationResult) {
	event := e.logger.Info()
	switch {
	case result.Skip != types.SkipNone:
		event = e.logger.Info().Str("skipped", string(result.Skip))
	case !result.Succeeded:
		event = e.logger.Error().Err(result.Err).Str("error_kind", string(result.ErrKind))
	}
	sid := result.Action.SID
	if sid == types.CallerIdentity {
		sid = "current-caller"
	}
	event.
		Str("operation", kind).
		Str("path", result.Action.Path).
		Str("identity", sid).
		Bool("succeeded", result.Succeeded).
		Msg("Resolved action applied")
}

// kindOf maps an application error to its OperationResult error kind.
func kindOf(err error) types.ErrorKind {
	switch {
	case errors.IsErrorCode(err, errors.ErrAccessDenied), stderrors.Is(err, fs.ErrPermission):
		return types.ErrKindAccessDenied
	case errors.IsErrorCode(err, errors.ErrNotFound), isNotExist(err):
		return types.ErrKindNotFound
	default:
		return types.ErrKindIO
	}
}

func isNotExist(err error) bool {
	return stderrors.Is(err, fs.ErrNotExist)
}
