package builtin

import (
	"errors"

	"github.com/martinemde/genbridge/chain"
	"github.com/martinemde/genbridge/genai"
	"github.com/martinemde/genbridge/serialize"
)

func id(parts ...string) []string {
	return append([]string{genai.Namespace}, parts...)
}

var registry = mustRegistry(
	serialize.Entry{ID: id("llm", "GenerativeAI"), New: newGenerativeAI},
	serialize.Entry{ID: id("llm", "GenerativeAIEmbeddings"), New: newGenerativeAIEmbeddings},
	serialize.Entry{ID: id("llm", "ModelDeploymentTGI"), New: newModelDeploymentTGI},
	serialize.Entry{ID: id("llm", "ModelDeploymentVLLM"), New: newModelDeploymentVLLM},
	serialize.Entry{ID: id("llm", "GollmLLM"), New: newGollmLLM},
	serialize.Entry{ID: id("prompts", "PromptTemplate"), New: newPromptTemplate},
	serialize.Entry{ID: id("runnables", "RunnablePassthrough"), New: newRunnablePassthrough},
	serialize.Entry{ID: id("runnables", "RunnableParallel"), New: newRunnableParallel},
	serialize.Entry{ID: id("runnables", "RunnableSequence"), New: newRunnableSequence},
	serialize.Entry{ID: id("chains", "LLMChain"), New: newLLMChain},
)

func mustRegistry(entries ...serialize.Entry) *serialize.Registry {
	r, err := serialize.NewRegistry(entries...)
	if err != nil {
		panic(err)
	}
	return r
}

func generationConfig(k *serialize.Kwargs) genai.GenerationConfig {
	return genai.GenerationConfig{
		MaxTokens:   k.Int("max_tokens"),
		Temperature: k.FloatPtr("temperature"),
		TopK:        k.Int("top_k"),
		TopP:        k.FloatPtr("top_p"),
		Stop:        k.Strings("stop"),
	}
}

func newGenerativeAI(env any, k *serialize.Kwargs) (any, error) {
	cfg := genai.GenerativeAIConfig{
		Task:              genai.Task(k.String("task")),
		Model:             k.String("model"),
		CompartmentID:     k.String("compartment_id"),
		ServiceEndpoint:   k.String("service_endpoint"),
		GenerationConfig:  generationConfig(k),
		FrequencyPenalty:  k.FloatPtr("frequency_penalty"),
		PresencePenalty:   k.FloatPtr("presence_penalty"),
		Truncate:          k.String("truncate"),
		Length:            genai.Length(k.String("length")),
		Format:            genai.Format(k.String("format")),
		Extractiveness:    genai.Extractiveness(k.String("extractiveness")),
		AdditionalCommand: k.String("additional_command"),
		EndpointKwargs:    k.Map("endpoint_kwargs"),
		ClientKwargs:      k.Map("client_kwargs"),
	}
	if err := k.Done(); err != nil {
		return nil, err
	}
	return genai.NewGenerativeAI(cfg, envOf(env).options()...)
}

func newGenerativeAIEmbeddings(env any, k *serialize.Kwargs) (any, error) {
	cfg := genai.GenerativeAIEmbeddingsConfig{
		Model:           k.String("model"),
		CompartmentID:   k.String("compartment_id"),
		ServiceEndpoint: k.String("service_endpoint"),
		Truncate:        k.String("truncate"),
		BatchSize:       k.Int("batch_size"),
		ClientKwargs:    k.Map("client_kwargs"),
	}
	if err := k.Done(); err != nil {
		return nil, err
	}
	return genai.NewGenerativeAIEmbeddings(cfg, envOf(env).options()...)
}

func deploymentConfig(k *serialize.Kwargs) genai.ModelDeploymentConfig {
	return genai.ModelDeploymentConfig{
		Endpoint:         k.String("endpoint"),
		Model:            k.String("model"),
		BestOf:           k.Int("best_of"),
		Headers:          k.StringMap("headers"),
		GenerationConfig: generationConfig(k),
	}
}

func newModelDeploymentTGI(env any, k *serialize.Kwargs) (any, error) {
	cfg := deploymentConfig(k)
	cfg.DoSample = k.BoolPtr("do_sample")
	cfg.ReturnFullText = k.BoolPtr("return_full_text")
	cfg.Watermark = k.BoolPtr("watermark")
	if err := k.Done(); err != nil {
		return nil, err
	}
	return genai.NewModelDeploymentTGI(cfg, envOf(env).options()...)
}

func newModelDeploymentVLLM(env any, k *serialize.Kwargs) (any, error) {
	cfg := deploymentConfig(k)
	if err := k.Done(); err != nil {
		return nil, err
	}
	return genai.NewModelDeploymentVLLM(cfg, envOf(env).options()...)
}

func newGollmLLM(env any, k *serialize.Kwargs) (any, error) {
	cfg := genai.GollmConfig{
		Provider:    k.String("provider"),
		Model:       k.String("model"),
		MaxTokens:   k.Int("max_tokens"),
		Temperature: k.FloatPtr("temperature"),
		Stop:        k.Strings("stop"),
	}
	if sec, ok := k.Secret("api_key"); ok {
		cfg.APIKeyEnv = sec.Name
		cfg.APIKey = sec.Value
	}
	if err := k.Done(); err != nil {
		return nil, err
	}
	return genai.NewGollmLLM(cfg, envOf(env).options()...)
}

func newPromptTemplate(_ any, k *serialize.Kwargs) (any, error) {
	template := k.String("template")
	vars := k.Strings("input_variables")
	partials := k.Map("partial_variables")
	format := k.String("template_format")
	if err := k.Done(); err != nil {
		return nil, err
	}
	if format != "" && format != chain.FormatFString {
		return nil, errors.New("unsupported template format " + format)
	}
	p, err := chain.NewPromptTemplate(template)
	if err != nil {
		return nil, err
	}
	if vars != nil {
		p.InputVariables = vars
	}
	for name, v := range partials {
		s, ok := v.(string)
		if !ok {
			return nil, errors.New("partial variable " + name + " is not a string")
		}
		p.PartialVariables[name] = s
	}
	return p, nil
}

func newRunnablePassthrough(_ any, k *serialize.Kwargs) (any, error) {
	if err := k.Done(); err != nil {
		return nil, err
	}
	return chain.RunnablePassthrough{}, nil
}

func newRunnableParallel(_ any, k *serialize.Kwargs) (any, error) {
	steps := k.Map("steps")
	if err := k.Done(); err != nil {
		return nil, err
	}
	return chain.NewRunnableParallel(steps), nil
}

func newRunnableSequence(_ any, k *serialize.Kwargs) (any, error) {
	first := k.Value("first")
	last := k.Value("last")
	var middle []any
	switch m := k.Value("middle").(type) {
	case nil:
	case []any:
		middle = m
	default:
		return nil, errors.New("middle must be a list of steps")
	}
	if err := k.Done(); err != nil {
		return nil, err
	}
	if first == nil || last == nil {
		return nil, chain.ErrShortSequence
	}
	steps := append(append([]any{first}, middle...), last)
	return chain.Pipe(steps...)
}

func newLLMChain(_ any, k *serialize.Kwargs) (any, error) {
	prompt := serialize.As[*chain.PromptTemplate](k, "prompt")
	llm := serialize.As[genai.Adapter](k, "llm")
	outputKey := k.String("output_key")
	if err := k.Done(); err != nil {
		return nil, err
	}
	c, err := chain.NewLLMChain(prompt, llm)
	if err != nil {
		return nil, err
	}
	if outputKey != "" {
		c.OutputKey = outputKey
	}
	return c, nil
}
