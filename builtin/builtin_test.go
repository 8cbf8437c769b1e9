package builtin

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strings"
	"testing"

	"github.com/martinemde/genbridge/chain"
	"github.com/martinemde/genbridge/genai"
	"github.com/martinemde/genbridge/serialize"
)

const (
	testEndpoint    = "https://modeldeployment.example.com/ocid/predict"
	testCompartment = "<ocid>"
	tenancySecret   = "tenancy-do-not-persist"
)

func testAuth() genai.Auth {
	return genai.Auth{
		Signer: genai.SignerFunc(func(r *http.Request) error {
			r.Header.Set("Authorization", "Signature test")
			return nil
		}),
		Config: map[string]string{"tenancy": tenancySecret},
	}
}

type fakeCloud struct {
	calls int
}

func (f *fakeCloud) GenerateText(ctx context.Context, details genai.Params, _ map[string]any) (*genai.GenerateTextResult, error) {
	f.calls++
	return &genai.GenerateTextResult{GeneratedTexts: [][]genai.GeneratedText{{{Text: "hi"}}}}, nil
}

func (f *fakeCloud) SummarizeText(ctx context.Context, details genai.Params, _ map[string]any) (*genai.SummarizeTextResult, error) {
	s := "summary"
	return &genai.SummarizeTextResult{Summary: &s}, nil
}

func (f *fakeCloud) EmbedText(ctx context.Context, details genai.Params, _ map[string]any) (*genai.EmbedTextResult, error) {
	inputs := details["inputs"].([]string)
	out := make([][]float64, len(inputs))
	for i := range out {
		out[i] = []float64{float64(i)}
	}
	return &genai.EmbedTextResult{Embeddings: out}, nil
}

func testOptions(cloud *fakeCloud) []Option {
	return []Option{
		WithAuth(testAuth()),
		WithCloudClientFactory(func(genai.CloudClientConfig) (genai.CloudClient, error) { return cloud, nil }),
		WithSecrets(serialize.MapSecrets(map[string]string{"OPENAI_API_KEY": "sk-test-value"})),
	}
}

func genAIOptions() []genai.Option {
	return []genai.Option{genai.WithAuth(testAuth())}
}

func mustPrompt(t *testing.T) *chain.PromptTemplate {
	t.Helper()
	p, err := chain.NewPromptTemplate("Tell me a joke about {subject}")
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// components builds one instance of every registered type.
func components(t *testing.T) map[string]serialize.Serializable {
	t.Helper()
	cloud, err := genai.NewGenerativeAI(genai.GenerativeAIConfig{
		CompartmentID: testCompartment,
		ClientKwargs:  map[string]any{"service_endpoint": "https://endpoint.example.com"},
		GenerationConfig: genai.GenerationConfig{
			Stop: []string{"\n\n"},
		},
		FrequencyPenalty: genai.Float(0.5),
	}, genAIOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	summarize, err := genai.NewGenerativeAI(genai.GenerativeAIConfig{
		Task:          genai.TaskSummarize,
		CompartmentID: testCompartment,
		Length:        genai.LengthShort,
	}, genAIOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	emb, err := genai.NewGenerativeAIEmbeddings(genai.GenerativeAIEmbeddingsConfig{CompartmentID: testCompartment}, genAIOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	tgi, err := genai.NewModelDeploymentTGI(genai.ModelDeploymentConfig{
		Endpoint:         testEndpoint,
		GenerationConfig: genai.GenerationConfig{TopK: 5},
		Watermark:        genai.Bool(false),
	}, genAIOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	vllm, err := genai.NewModelDeploymentVLLM(genai.ModelDeploymentConfig{Endpoint: testEndpoint, Model: "my_model"}, genAIOptions()...)
	if err != nil {
		t.Fatal(err)
	}
	gollm, err := genai.NewGollmLLM(genai.GollmConfig{Provider: "openai", Model: "gpt-4o-mini", APIKey: "sk-inline-value"})
	if err != nil {
		t.Fatal(err)
	}
	llmChain, err := chain.NewLLMChain(mustPrompt(t), vllm)
	if err != nil {
		t.Fatal(err)
	}
	seq, err := chain.Pipe(
		chain.NewRunnableParallel(map[string]any{"text": chain.RunnablePassthrough{}}),
		mustPrompt(t),
		tgi,
	)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]serialize.Serializable{
		"GenerativeAI":           cloud,
		"GenerativeAI/summarize": summarize,
		"GenerativeAIEmbeddings": emb,
		"ModelDeploymentTGI":     tgi,
		"ModelDeploymentVLLM":    vllm,
		"GollmLLM":               gollm,
		"PromptTemplate":         mustPrompt(t),
		"RunnablePassthrough":    chain.RunnablePassthrough{},
		"RunnableSequence":       seq,
		"LLMChain":               llmChain,
	}
}

func TestRegistryCoversEveryComponent(t *testing.T) {
	for name, c := range components(t) {
		if _, ok := Registry().Lookup(c.SerializationID()); !ok {
			t.Errorf("%s: id %v is not registered", name, c.SerializationID())
		}
	}
	if got := Registry().Len(); got != 10 {
		t.Errorf("registry has %d ids, want 10", got)
	}
}

func TestRoundTripIsIdempotent(t *testing.T) {
	for name, c := range components(t) {
		t.Run(name, func(t *testing.T) {
			first, err := serialize.Dump(c)
			if err != nil {
				t.Fatalf("Dump: %v", err)
			}
			data, err := serialize.MarshalJSON(first)
			if err != nil {
				t.Fatal(err)
			}
			parsed, err := serialize.ParseJSON(data)
			if err != nil {
				t.Fatalf("ParseJSON: %v", err)
			}
			loaded, err := Load(parsed, testOptions(&fakeCloud{})...)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if reflect.TypeOf(loaded) != reflect.TypeOf(c) {
				t.Fatalf("loaded %T, want %T", loaded, c)
			}
			second, err := serialize.Dump(loaded.(serialize.Serializable))
			if err != nil {
				t.Fatalf("re-Dump: %v", err)
			}
			want, _ := serialize.CanonicalJSON(first)
			got, _ := serialize.CanonicalJSON(second)
			if string(got) != string(want) {
				t.Errorf("re-dump differs:\n got %s\nwant %s", got, want)
			}
		})
	}
}

func TestDumpsNeverCarryCredentials(t *testing.T) {
	for name, c := range components(t) {
		n, err := serialize.Dump(c)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		data, _ := serialize.CanonicalJSON(n)
		for _, secret := range []string{tenancySecret, "Signature test", "sk-inline-value"} {
			if strings.Contains(string(data), secret) {
				t.Errorf("%s: dump contains %q: %s", name, secret, data)
			}
		}
	}
}

func TestGollmKeyIsSecretReference(t *testing.T) {
	g, err := genai.NewGollmLLM(genai.GollmConfig{Provider: "openai", APIKey: "sk-inline-value"})
	if err != nil {
		t.Fatal(err)
	}
	n, err := serialize.Dump(g)
	if err != nil {
		t.Fatal(err)
	}
	data, _ := serialize.CanonicalJSON(n)
	if !strings.Contains(string(data), `"api_key":{"lc":1,"type":"secret","id":["OPENAI_API_KEY"]}`) {
		t.Errorf("api_key not written as a secret reference: %s", data)
	}

	loaded, err := Load(n, WithSecrets(serialize.MapSecrets(map[string]string{"OPENAI_API_KEY": "sk-loaded"})))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := loaded.(*genai.GollmLLM).Config()
	if cfg.APIKeyEnv != "OPENAI_API_KEY" {
		t.Errorf("APIKeyEnv = %q", cfg.APIKeyEnv)
	}

	_, err = Load(n, WithSecrets(serialize.MapSecrets(nil)))
	var se *serialize.SerializationError
	if !errors.As(err, &se) {
		t.Errorf("expected SerializationError for a missing secret, got %v", err)
	}
}

func TestLoadMinimalCloudEnvelope(t *testing.T) {
	data := []byte(`{
		"lc": 1,
		"type": "constructor",
		"id": ["genbridge", "llm", "GenerativeAI"],
		"kwargs": {
			"compartment_id": "<ocid>",
			"client_kwargs": {"service_endpoint": "https://endpoint.example.com"}
		}
	}`)
	n, err := serialize.ParseJSON(data)
	if err != nil {
		t.Fatal(err)
	}
	cloud := &fakeCloud{}
	obj, err := Load(n, testOptions(cloud)...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	llm := obj.(*genai.GenerativeAI)
	cfg := llm.Config()
	if cfg.CompartmentID != testCompartment || cfg.Task != genai.TaskTextGeneration || cfg.MaxTokens != genai.DefaultMaxTokens {
		t.Errorf("unexpected config %+v", cfg)
	}
	got, err := llm.Generate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "hi" || cloud.calls != 1 {
		t.Errorf("Generate = %q after %d calls", got, cloud.calls)
	}
}

func TestLoadedLLMChainWithVLLM(t *testing.T) {
	comps := components(t)
	n, err := serialize.Dump(comps["LLMChain"])
	if err != nil {
		t.Fatal(err)
	}
	prompt := n.Kwargs["prompt"].(*serialize.Node)
	if !reflect.DeepEqual(prompt.Kwargs["input_variables"], []any{"subject"}) {
		t.Errorf("prompt kwargs = %v", prompt.Kwargs)
	}
	llm := n.Kwargs["llm"].(*serialize.Node)
	if llm.Kwargs["endpoint"] != testEndpoint || llm.Kwargs["model"] != "my_model" {
		t.Errorf("llm kwargs = %v", llm.Kwargs)
	}

	obj, err := Load(n, testOptions(&fakeCloud{})...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c := obj.(*chain.LLMChain)
	if !reflect.DeepEqual(c.InputKeys(), []string{"subject"}) {
		t.Errorf("InputKeys = %v", c.InputKeys())
	}
	vllm, ok := c.LLM.(*genai.ModelDeploymentVLLM)
	if !ok {
		t.Fatalf("llm = %T", c.LLM)
	}
	if vllm.Config().Endpoint != testEndpoint || vllm.Config().Model != "my_model" {
		t.Errorf("vllm config = %+v", vllm.Config())
	}
	if _, err := c.Run(context.Background(), map[string]any{"subject": "cats"}); !genai.IsUnsupported(err) {
		t.Errorf("expected UnsupportedOperationError from the placeholder, got %v", err)
	}
}

func TestLoadedSequenceSteps(t *testing.T) {
	n, err := serialize.Dump(components(t)["RunnableSequence"])
	if err != nil {
		t.Fatal(err)
	}
	obj, err := Load(n, testOptions(&fakeCloud{})...)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	steps := obj.(*chain.RunnableSequence).Steps()
	if len(steps) != 3 {
		t.Fatalf("len(steps) = %d", len(steps))
	}
	par, ok := steps[0].(*chain.RunnableParallel)
	if !ok {
		t.Fatalf("steps[0] = %T", steps[0])
	}
	if _, ok := par.Steps["text"].(chain.RunnablePassthrough); !ok {
		t.Errorf("parallel step = %T", par.Steps["text"])
	}
	if _, ok := steps[1].(*chain.PromptTemplate); !ok {
		t.Errorf("steps[1] = %T", steps[1])
	}
	tgi, ok := steps[2].(*genai.ModelDeploymentTGI)
	if !ok {
		t.Fatalf("steps[2] = %T", steps[2])
	}
	if tgi.Config().Endpoint != testEndpoint || tgi.Config().TopK != 5 || *tgi.Config().Watermark {
		t.Errorf("tgi config = %+v", tgi.Config())
	}
}

func TestLoadUnknownID(t *testing.T) {
	_, err := Load(&serialize.Node{LC: 1, Type: serialize.TypeConstructor, ID: []string{"genbridge", "llm", "Nope"}})
	var se *serialize.SerializationError
	if !errors.As(err, &se) {
		t.Fatalf("expected SerializationError, got %v", err)
	}
}

func TestLoadWithoutCredentials(t *testing.T) {
	n, err := serialize.Dump(components(t)["ModelDeploymentTGI"])
	if err != nil {
		t.Fatal(err)
	}
	_, err = Load(n)
	if !genai.IsConfiguration(err) {
		t.Errorf("expected ConfigurationError, got %v", err)
	}
}

func TestLoadRejectsUnknownKwarg(t *testing.T) {
	n := &serialize.Node{LC: 1, Type: serialize.TypeConstructor, ID: []string{"genbridge", "llm", "ModelDeploymentVLLM"}, Kwargs: map[string]any{
		"endpoint":  testEndpoint,
		"do_sample": true,
	}}
	if _, err := Load(n, WithAuth(testAuth())); err == nil || !strings.Contains(err.Error(), "do_sample") {
		t.Errorf("expected unknown kwarg error, got %v", err)
	}
}

func TestLoadResolvesAuthOncePerAdapter(t *testing.T) {
	n, err := serialize.Dump(components(t)["RunnableSequence"])
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	resolver := func() (genai.Auth, error) {
		calls++
		return testAuth(), nil
	}
	if _, err := Load(n, WithAuthResolver(resolver)); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if calls != 1 {
		t.Errorf("resolver called %d times, want 1", calls)
	}
}
