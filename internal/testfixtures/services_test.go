package testfixtures

import (
	"context"
	"testing"

	"github.com/example/speaker-scheduler/internal/application"
)

type capturingSpeakerRepo struct {
	created application.Speaker
}

func (c *capturingSpeakerRepo) CreateSpeaker(_ context.Context, speaker application.Speaker) (application.Speaker, error) {
	c.created = speaker
	return speaker, nil
}

func (c *capturingSpeakerRepo) UpdateSpeaker(_ context.Context, speaker application.Speaker) (application.Speaker, error) {
	return speaker, nil
}

func (c *capturingSpeakerRepo) GetSpeaker(context.Context, string) (application.Speaker, error) {
	return application.Speaker{}, application.ErrNotFound
}

func (c *capturingSpeakerRepo) ListSpeakers(context.Context, application.SpeakerFilter) ([]application.Speaker, error) {
	return nil, nil
}

func (c *capturingSpeakerRepo) DeleteSpeaker(context.Context, string) error {
	return nil
}

func TestServiceFactoryNewSpeakerService(t *testing.T) {
	factory := NewServiceFactory(WithIDGenerator(NewIDGenerator("speaker")))
	repo := &capturingSpeakerRepo{}

	svc := factory.NewSpeakerService(SpeakerServiceDeps{Speakers: repo})
	user := NewUserFixture()
	input := NewSpeakerFixture(WithSpeakerTalks(12, 3)).Input()

	speaker, err := svc.CreateSpeaker(context.Background(), application.CreateSpeakerParams{Principal: user.Principal(), Input: input})
	if err != nil {
		t.Fatalf("CreateSpeaker returned error: %v", err)
	}

	if speaker.ID != "speaker-1" {
		t.Fatalf("expected generated ID speaker-1, got %q", speaker.ID)
	}
	if repo.created.ID != speaker.ID || repo.created.CreatedBy != user.ID {
		t.Fatalf("repository received unexpected speaker: %#v", repo.created)
	}
	if !speaker.CreatedAt.Equal(factory.Clock.Now()) {
		t.Fatalf("expected timestamp %v, got %v", factory.Clock.Now(), speaker.CreatedAt)
	}
}
