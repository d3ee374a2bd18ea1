package folder_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-notify/core/folder"
	"github.com/trezcool/masomo-notify/core/notification"
	dummydb "github.com/trezcool/masomo-notify/storage/database/dummy"
	testutil "github.com/trezcool/masomo-notify/tests"
)

var d0 = time.Date(2021, 3, 1, 8, 0, 0, 0, time.UTC)

func newTitles(t *testing.T, db *dummydb.DB) notification.Titles {
	names := dummydb.NewContextNameRepository(db)
	if err := names.SaveContextName(context.Background(), notification.ContextCourse, 12, "Algebra"); err != nil {
		t.Fatalf("saving context name: %v", err)
	}
	return notification.Titles{Names: names}
}

func TestHandler_digest(t *testing.T) {
	ctx := context.Background()
	trans := testutil.NewTranslators(t)
	require.NoError(t, trans.Register(folder.Messages))
	logger := testutil.NewLogger()

	db, _ := dummydb.Open()
	pubs := dummydb.NewPublisherRepository(db)
	subs := dummydb.NewSubscriberRepository(db)
	files := fstest.MapFS{
		"courses/12/Slides/week1.pdf": {Data: []byte("%PDF"), ModTime: d0},
		"courses/12/Slides/old.txt":   {Data: []byte("old"), ModTime: d0.Add(-time.Hour)},
	}
	handler := folder.NewHandler(files, newTitles(t, db), "https://masomo.test")
	registry := notification.NewRegistry(map[string]notification.Handler{folder.ResourceType: handler})
	digester := notification.NewDigester(pubs, registry, trans, logger)
	svc := notification.NewService(pubs, subs, trans, logger)

	// publisher with news at D0, subscriber who last looked at D0-1s
	data := folder.Data("courses/12/Slides/",
		notification.ContextRef{Kind: notification.ContextCourse, ID: 12},
		notification.ContextRef{Kind: "folder", ID: 4},
	)
	pub, err := pubs.FindOrCreatePublisher(ctx, notification.Publisher{
		ID:           "p1",
		ResourceType: folder.ResourceType,
		ResourceID:   4,
		Data:         data.Data,
		BusinessPath: data.BusinessPath,
		State:        notification.StateActive,
		LatestNews:   d0,
		CreatedAt:    d0.Add(-time.Hour),
	})
	require.NoError(t, err)
	sub, err := subs.CreateOrEnableSubscriber(ctx, notification.Subscriber{
		ID:          "s1",
		IdentityID:  10,
		PublisherID: pub.ID,
		Enabled:     true,
		CreatedAt:   d0.Add(-time.Hour),
		LastSeen:    d0.Add(-time.Second),
	})
	require.NoError(t, err)

	dg := digester.GetDigest(ctx, sub, "en", notification.MimeTypeText)
	require.Equal(t, notification.OutcomeNews, dg.Outcome)
	require.Len(t, dg.Info.Items, 1)
	item := dg.Info.Items[0]
	assert.Equal(t, "week1.pdf", item.Description)
	assert.Equal(t, "https://masomo.test/folders/4/week1.pdf", item.URL)
	assert.Equal(t, "icon-file-pdf", item.IconClass)
	assert.Equal(t, "New in folder Slides (Algebra)", dg.Info.Title)
	assert.NotEmpty(t, dg.Rendered)

	fr := digester.GetDigest(ctx, sub, "fr", notification.MimeTypeHTML)
	assert.Equal(t, "Nouveau dans le dossier Slides (Algebra)", fr.Info.Title)
	assert.Contains(t, fr.Rendered, `<i class="icon-file-pdf"></i>`)

	require.NoError(t, svc.MarkRead(ctx, sub, dg.ComputedAt))
	sub, err = subs.GetSubscriberByID(ctx, sub.ID)
	require.NoError(t, err)
	dg = digester.GetDigest(ctx, sub, "en", notification.MimeTypeText)
	assert.True(t, dg.IsEmpty())
	assert.Empty(t, dg.Info.Items)
}

func TestHandler_ComputeChanges(t *testing.T) {
	ctx := context.Background()
	trans := testutil.NewTranslators(t)
	require.NoError(t, trans.Register(folder.Messages))

	files := fstest.MapFS{
		"shared/b.docx":         {ModTime: d0.Add(2 * time.Minute)},
		"shared/a.png":          {ModTime: d0.Add(2 * time.Minute)},
		"shared/sub/notes.md":   {ModTime: d0.Add(time.Minute)},
		"shared/.hidden":        {ModTime: d0.Add(time.Minute)},
		"shared/.git/HEAD":      {ModTime: d0.Add(time.Minute)},
		"shared/unchanged.txt":  {ModTime: d0},
		"shared/empty/.keep":    {ModTime: d0.Add(time.Minute)},
		"notafolder.txt":        {ModTime: d0.Add(time.Minute)},
	}
	handler := folder.NewHandler(files, notification.Titles{}, "")
	request := func(dir string) notification.ChangeRequest {
		return notification.ChangeRequest{
			Publisher:  notification.Publisher{ResourceType: folder.ResourceType, ResourceID: 4, Data: dir, State: notification.StateActive},
			Locale:     "en",
			Translator: trans.Get("en"),
			Since:      d0,
		}
	}

	info, err := handler.ComputeChanges(ctx, request("shared"))
	require.NoError(t, err)
	assert.Equal(t, "New in folder shared", info.Title)
	var got []string
	for _, item := range info.Items {
		got = append(got, item.Description)
		assert.Empty(t, item.URL)
	}
	assert.Equal(t, []string{"sub/notes.md", "a.png", "b.docx"}, got)

	info, err = handler.ComputeChanges(ctx, request("shared/empty"))
	require.NoError(t, err)
	assert.False(t, info.HasNews())

	_, err = handler.ComputeChanges(ctx, request("removed"))
	assert.True(t, notification.IsResourceGone(err), "missing folder: %v", err)
	_, err = handler.ComputeChanges(ctx, request("notafolder.txt"))
	assert.True(t, notification.IsResourceGone(err), "file: %v", err)
}

func TestData(t *testing.T) {
	tests := []struct {
		dir  string
		want string
	}{
		{dir: "courses/12/", want: "courses/12"},
		{dir: "/courses//12", want: "courses/12"},
		{dir: "../../etc", want: "etc"},
		{dir: "", want: "."},
	}
	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			if got := folder.Data(tt.dir).Data; got != tt.want {
				t.Errorf("Data(%q) = %q, want %q", tt.dir, got, tt.want)
			}
		})
	}
}
