// Package llm provides reasoning collaborator implementations.
//
// The factory creates clients based on provider configuration.
// Currently supports:
//   - anthropic: Anthropic Claude via the official SDK
//   - static: offline acknowledgement, no credentials needed
package llm
