// Package cfgx provides a one-shot typed configuration pipeline on top of the
// value tree: normalize the input, overlay it onto lowered defaults, run
// preprocessors, extract into the target struct, then validate and finalize.
//
// The helpers defined here are intentionally decoupled from config.Config so
// other packages can decode, preprocess, and validate their own config structs
// without depending on application-level wiring.
//
// Option catalog:
//   - Input: WithFormat for raw []byte payloads.
//   - Defaults: WithDefaults, WithDefaultFunc.
//   - Preprocessing: WithPreprocess, WithPreprocessFunc, WithResolvers,
//     WithExpandEnv, WithMerge.
//   - Validation: WithValidator, WithValidatorFunc, WithoutValidable.
//   - Finalization: WithFinalizer.
//   - Diagnostics: WithOptionError lets wrappers surface invalid option state.
package cfgx
