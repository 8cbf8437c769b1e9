// Package genai provides a uniform text-generation and embedding interface
// over heterogeneous backends: a managed cloud generative-AI service and
// self-hosted inference endpoints speaking different wire protocols.
//
// # Architecture
//
// The package is layered the same way for every backend:
//
//   - Parameter model: per-backend default parameters and validation
//   - Adapter: the Generate / BatchGenerate contract (Adapter interface)
//   - Dispatcher: builds the call, retries once, classifies failures
//   - Normalizer: reduces backend envelopes to strings
//
// # Quick Start
//
// Cloud text generation:
//
//	llm, err := genai.NewGenerativeAI(
//	    genai.GenerativeAIConfig{CompartmentID: "ocid1.compartment.oc1..<ocid>"},
//	    genai.WithAuthResolver(resolver),
//	)
//	text, err := llm.Generate(ctx, "Tell me a joke.")
//
// Self-hosted TGI endpoint:
//
//	md, err := genai.NewModelDeploymentTGI(
//	    genai.ModelDeploymentConfig{Endpoint: "https://host/predict"},
//	    genai.WithAuth(genai.Auth{Signer: signer}),
//	)
//	text, err := md.Generate(ctx, "Tell me a joke.", genai.WithStop([]string{"\n"}))
//
// # Credentials
//
// Adapters never reach for a hidden global credential. Callers pass an
// explicit Auth, or an AuthResolver that is invoked exactly once at
// construction when no explicit Auth is supplied.
//
// # Serialization
//
// Every adapter implements SerializationID and SerializationKwargs so it can
// be dumped by package serialize. Auth, resolved secrets and the lazily
// created client handle are never part of the kwargs.
package genai
