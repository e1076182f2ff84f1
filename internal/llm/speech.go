package llm

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"github.com/Veraticus/spice-capture/internal/model"
	"google.golang.org/api/option"
)

// recognizer is the part of the Speech-to-Text client the transcriber uses.
type recognizer interface {
	Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
}

type speechClient struct {
	client *speech.Client
}

func (s speechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return s.client.Recognize(ctx, req)
}

// speechTranscriber implements Transcriber with Google Cloud Speech-to-Text.
// Credentials come from CredentialsFile or Application Default Credentials.
type speechTranscriber struct {
	recognizer recognizer
	language   string
}

func newSpeechTranscriber(ctx context.Context, cfg Config) (*speechTranscriber, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create speech client: %w", err)
	}
	return &speechTranscriber{recognizer: speechClient{client: c}, language: speechLanguage(cfg.Language)}, nil
}

// speechLanguage turns a bare language code such as "pt" into the BCP-47
// tag the API expects.
func speechLanguage(lang string) string {
	switch {
	case lang == "":
		return "en-US"
	case lang == "pt":
		return "pt-BR"
	case lang == "en":
		return "en-US"
	default:
		return lang
	}
}

func speechEncoding(mimeType string) (speechpb.RecognitionConfig_AudioEncoding, int32) {
	base := strings.TrimSpace(strings.Split(mimeType, ";")[0])
	switch base {
	case "audio/webm":
		return speechpb.RecognitionConfig_WEBM_OPUS, 48000
	case "audio/ogg":
		return speechpb.RecognitionConfig_OGG_OPUS, 48000
	case "audio/flac":
		return speechpb.RecognitionConfig_FLAC, 0
	case "audio/wav", "audio/x-wav":
		return speechpb.RecognitionConfig_LINEAR16, 0
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, 0
	}
}

// Transcribe runs a synchronous recognition over the whole recording.
func (t *speechTranscriber) Transcribe(ctx context.Context, audio model.AudioPayload) (string, error) {
	encoding, rate := speechEncoding(audio.MIMEType)

	resp, err := t.recognizer.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:        encoding,
			SampleRateHertz: rate,
			LanguageCode:    t.language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio.Data},
		},
	})
	if err != nil {
		return "", grpcError("google-speech", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()))
	}
	return strings.Join(parts, " "), nil
}
