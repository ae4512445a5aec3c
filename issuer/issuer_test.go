package issuer

import (
	"bytes"
	"context"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-json-experiment/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeptools/certgw/certificate"
	"github.com/zeptools/certgw/db/kvdb/impls/memory"
	"github.com/zeptools/certgw/store"
	"github.com/zeptools/certgw/store/storetest"
)

var (
	eventStart = time.Date(2024, 8, 17, 9, 0, 0, 0, time.UTC)
	fixedNow   = time.Date(2024, 8, 20, 10, 0, 0, 0, time.UTC)
	testKey    = []byte("0123456789abcdef0123456789abcdef")
)

const fieldsJSON = `[{"key":"name","x":421,"y":260,"fontFamily":"Times Roman","fontSize":32,"bold":true},` +
	`{"key":"number","x":421,"y":120,"fontSize":12},{"key":"date","x":650,"y":520,"fontSize":12}]`

type fixture struct {
	iss     *Issuer
	st      *store.Store
	sd      storetest.Seeder
	kv      *memory.Client
	public  string
	eventID int64
}

func (f fixture) saveImage(t *testing.T, rel string) string {
	t.Helper()
	full := filepath.Join(f.public, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, imaging.Save(imaging.New(842, 595, color.NRGBA{R: 255, G: 250, B: 235, A: 255}), full))
	return "/" + rel
}

func (f fixture) exists(rel string) bool {
	_, err := os.Stat(filepath.Join(f.public, filepath.FromSlash(rel)))
	return err == nil
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	st, client := storetest.Open(t)
	f := fixture{
		st:     st,
		sd:     storetest.Seeder{T: t, Client: client},
		kv:     memory.New(nil),
		public: t.TempDir(),
	}
	f.eventID = f.sd.Event("Tech Summit", "tech-summit", eventStart)
	iss, err := New(Conf{
		AppName:     "certgw-test",
		PublicRoot:  f.public,
		BaseURL:     "https://certs.example.org/",
		DownloadKey: testKey,
	}, st, f.kv, append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)...)
	require.NoError(t, err)
	f.iss = iss
	return f
}

func TestNewRejectsBadKey(t *testing.T) {
	st, _ := storetest.Open(t)
	_, err := New(Conf{DownloadKey: []byte("short")}, st, memory.New(nil))
	assert.Error(t, err)
	_, err = New(Conf{DownloadKey: testKey}, st, nil)
	assert.Error(t, err)
}

func TestPreview(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pid := f.sd.Participant(f.eventID, "Budi Santoso", true, eventStart)
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)

	doc, err := f.iss.Preview(ctx, f.eventID, pid, 1)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF-")))
	assert.Equal(t, 1, bytes.Count(doc, []byte("<</Type /Page\n")))

	png, err := f.iss.PreviewImage(ctx, f.eventID, pid, 1)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(png))
	require.NoError(t, err)
	assert.Equal(t, 842, img.Bounds().Dx())

	_, err = f.iss.Preview(ctx, f.eventID, pid, 2)
	assert.ErrorIs(t, err, ErrTemplateNotFound)
	_, err = f.iss.Preview(ctx, f.eventID, pid, 7)
	assert.ErrorIs(t, err, ErrInvalidTemplateIndex)
	_, err = f.iss.Preview(ctx, f.eventID, 999, 1)
	assert.ErrorIs(t, err, ErrParticipantNotFound)

	other := f.sd.Event("Other", "other", eventStart)
	_, err = f.iss.Preview(ctx, other, pid, 1)
	assert.ErrorIs(t, err, ErrParticipantNotFound)
}

func TestPreviewMalformedFields(t *testing.T) {
	f := newFixture(t)
	pid := f.sd.Participant(f.eventID, "Budi", true, eventStart)
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), `[{"key":"name","x":"left","y":1}]`)

	_, err := f.iss.Preview(context.Background(), f.eventID, pid, 1)
	var ffe *certificate.TemplateFieldFormatError
	require.ErrorAs(t, err, &ffe)
	assert.Equal(t, 1, ffe.TemplateIndex)
	assert.Equal(t, 0, ffe.Index)
}

func TestGenerateMerged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pid := f.sd.Participant(f.eventID, "Budi", true, eventStart)

	_, err := f.iss.GenerateMerged(ctx, f.eventID, pid)
	assert.ErrorIs(t, err, ErrNoTemplates)

	f.sd.Template(f.eventID, 2, f.saveImage(t, "certificates/templates/two.png"), fieldsJSON)
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)
	doc, err := f.iss.GenerateMerged(ctx, f.eventID, pid)
	require.NoError(t, err)
	assert.Equal(t, 2, bytes.Count(doc, []byte("<</Type /Page\n")))
}

func TestBulkGeneratePartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	p0 := f.sd.Participant(f.eventID, "Ana  Maria", true, eventStart)
	p1 := f.sd.Participant(f.eventID, "Budi", true, eventStart.Add(time.Minute))
	p2 := f.sd.Participant(f.eventID, "Citra", true, eventStart.Add(2*time.Minute))
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)
	f.sd.Template(f.eventID, 2, "/certificates/templates/missing.png", fieldsJSON)

	report, err := f.iss.BulkGenerate(ctx, f.eventID)
	require.NoError(t, err)
	assert.NotEmpty(t, report.JobID)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.SuccessCount)
	assert.Equal(t, 1, report.FailureCount)
	failed := report.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, p1, failed[0].ParticipantID)
	assert.NotEmpty(t, failed[0].Reason)

	require.Len(t, report.Files, 2)
	assert.Equal(t, p0, report.Files[0].ParticipantID)
	assert.Equal(t, p2, report.Files[1].ParticipantID)
	assert.Regexp(t, `^/certificates/cert_Ana_Maria_tech-summit_[0-9a-f-]{36}\.pdf$`, report.Files[0].Path)
	for _, file := range report.Files {
		assert.True(t, f.exists(file.Path), file.Path)
	}

	st, err := f.iss.Stats(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.TotalParticipants)
	assert.Equal(t, int64(2), st.WithCertificates)
	assert.Equal(t, int64(1), st.WithoutCertificates)
	assert.Equal(t, 67, st.ProgressPercentage)
	assert.True(t, st.CanGenerate)

	progress, err := f.iss.Progress(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, BulkProgress{
		JobID: report.JobID, Status: StatusDone, Total: 3, Done: 3, Success: 2, Errors: 1,
		StartedAt: "2024-08-20T10:00:00Z", UpdatedAt: "2024-08-20T10:00:00Z",
	}, progress)

	history, err := f.iss.History(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	var entry historyEntry
	require.NoError(t, json.Unmarshal([]byte(history[0]), &entry))
	assert.Equal(t, report.JobID, entry.JobID)
	assert.Equal(t, 2, entry.Success)

	// only the failed participant is left
	report, err = f.iss.BulkGenerate(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Total)
}

// lingeringKV holds up the first write of a run's start fields until the key's old ttl has passed
type lingeringKV struct {
	*memory.Client
	delay time.Duration
	armed bool
}

func (kv *lingeringKV) SetFields(ctx context.Context, key string, fields map[string]any) error {
	err := kv.Client.SetFields(ctx, key, fields)
	if _, start := fields["job_id"]; start && kv.armed {
		kv.armed = false
		time.Sleep(kv.delay)
	}
	return err
}

func TestBulkGenerateResetsProgress(t *testing.T) {
	ctx := context.Background()
	st, client := storetest.Open(t)
	sd := storetest.Seeder{T: t, Client: client}
	public := t.TempDir()
	eventID := sd.Event("Tech Summit", "tech-summit", eventStart)
	sd.Participant(eventID, "Budi", true, eventStart)
	f := fixture{public: public}
	sd.Template(eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)

	kv := &lingeringKV{Client: memory.New(nil), delay: 300 * time.Millisecond}
	iss, err := New(Conf{PublicRoot: public, DownloadKey: testKey, ProgressTTL: 100 * time.Millisecond}, st, kv)
	require.NoError(t, err)
	_, err = iss.BulkGenerate(ctx, eventID)
	require.NoError(t, err)

	sd.Participant(eventID, "Sari", true, eventStart.Add(time.Minute))
	kv.armed = true
	report, err := iss.BulkGenerate(ctx, eventID)
	require.NoError(t, err)

	progress, err := iss.Progress(ctx, eventID)
	require.NoError(t, err)
	assert.Equal(t, report.JobID, progress.JobID)
	assert.Equal(t, StatusDone, progress.Status)
	assert.Equal(t, 1, progress.Total)
	assert.Equal(t, 1, progress.Done)
	assert.NotEmpty(t, progress.StartedAt)
}

func TestBulkGenerateGuards(t *testing.T) {
	ctx := context.Background()
	locks := &sync.Map{}
	f := newFixture(t, WithLocks(locks))

	_, err := f.iss.BulkGenerate(ctx, 999)
	assert.ErrorIs(t, err, ErrEventNotFound)

	_, err = f.iss.BulkGenerate(ctx, f.eventID)
	assert.ErrorIs(t, err, ErrNothingToGenerate)

	f.sd.Participant(f.eventID, "Budi", true, eventStart)
	_, err = f.iss.BulkGenerate(ctx, f.eventID)
	assert.ErrorIs(t, err, ErrNoTemplates)

	locks.Store(fmt.Sprintf("bulk:%d", f.eventID), struct{}{})
	_, err = f.iss.BulkGenerate(ctx, f.eventID)
	assert.ErrorIs(t, err, ErrBulkInProgress)

	progress, err := f.iss.Progress(ctx, f.eventID)
	require.NoError(t, err)
	assert.Equal(t, StatusIdle, progress.Status)
}

func TestBulkGenerateStopsWithRoot(t *testing.T) {
	root, cancel := context.WithCancel(context.Background())
	f := newFixture(t, WithRootContext(root))
	f.sd.Participant(f.eventID, "Budi", true, eventStart)
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)
	cancel()

	_, err := f.iss.BulkGenerate(context.Background(), f.eventID)
	assert.ErrorIs(t, err, context.Canceled)
	st, err := f.iss.Stats(context.Background(), f.eventID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.WithCertificates)
}

func TestTemplateAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(1684, 1190, color.White), imaging.PNG))
	first, err := f.iss.UploadTemplateImage(ctx, f.eventID, 2, "design.PNG", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Regexp(t, fmt.Sprintf(`^/certificates/templates/multi-template-event-%d-idx-2-[0-9a-f-]{36}\.png$`, f.eventID), first)
	assert.True(t, f.exists(first))

	second, err := f.iss.UploadTemplateImage(ctx, f.eventID, 2, "design.png", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.False(t, f.exists(first))
	assert.True(t, f.exists(second))

	_, err = f.iss.UploadTemplateImage(ctx, f.eventID, 2, "anim.gif", bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, err = f.iss.UploadTemplateImage(ctx, f.eventID, 2, "fake.png", bytes.NewReader([]byte("not an image")))
	assert.ErrorIs(t, err, ErrUnsupportedImage)
	_, err = f.iss.UploadTemplateImage(ctx, f.eventID, 0, "design.png", bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrInvalidTemplateIndex)

	views, err := f.iss.ListTemplates(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, second, views[0].TemplateURL)
	assert.Equal(t, certificate.ImageSize{Width: 1684, Height: 1190}, views[0].TemplateSize)
	assert.Empty(t, views[0].Fields)

	err = f.iss.SaveTemplates(ctx, f.eventID, []store.TemplateInput{{TemplateIndex: 2, ImagePath: "data:image/png;base64,AAAA"}})
	assert.ErrorIs(t, err, ErrInvalidTemplatePath)
	err = f.iss.SaveTemplates(ctx, f.eventID, []store.TemplateInput{{TemplateIndex: 2, ImagePath: "/certificates/../secret.png"}})
	assert.ErrorIs(t, err, ErrInvalidTemplatePath)
	err = f.iss.SaveTemplates(ctx, f.eventID, []store.TemplateInput{{
		TemplateIndex: 2, ImagePath: second, Fields: []certificate.FieldSpec{{Key: "name", X: 421, Y: 300}},
	}})
	require.NoError(t, err)
	views, err = f.iss.ListTemplates(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, views[0].Fields, 1)

	unlock, err := f.iss.lockSlots(f.eventID, 2)
	require.NoError(t, err)
	assert.ErrorIs(t, f.iss.DeleteTemplate(ctx, f.eventID, 2), ErrTemplateBusy)
	_, err = f.iss.UploadTemplateImage(ctx, f.eventID, 2, "design.png", bytes.NewReader(buf.Bytes()))
	assert.ErrorIs(t, err, ErrTemplateBusy)
	err = f.iss.SaveTemplates(ctx, f.eventID, []store.TemplateInput{{TemplateIndex: 1, ImagePath: second}, {TemplateIndex: 2, ImagePath: second}})
	assert.ErrorIs(t, err, ErrTemplateBusy)
	unlock()

	require.NoError(t, f.iss.DeleteTemplate(ctx, f.eventID, 2))
	assert.False(t, f.exists(second))
	assert.ErrorIs(t, f.iss.DeleteTemplate(ctx, f.eventID, 2), ErrTemplateNotFound)
}

func TestDownloads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.sd.Participant(f.eventID, "Budi", true, eventStart)
	f.sd.Template(f.eventID, 1, f.saveImage(t, "certificates/templates/one.png"), fieldsJSON)
	report, err := f.iss.BulkGenerate(ctx, f.eventID)
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	token := report.Files[0].DownloadToken

	name, data, err := f.iss.OpenDownload(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, filepath.Base(report.Files[0].Path), name)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	_, _, err = f.iss.OpenDownload(ctx, token[:len(token)-2]+"xx")
	assert.ErrorIs(t, err, ErrInvalidDownloadToken)

	unknown, err := f.iss.DownloadToken("/certificates/never-issued.pdf")
	require.NoError(t, err)
	_, _, err = f.iss.OpenDownload(ctx, unknown)
	assert.ErrorIs(t, err, ErrCertificateNotFound)

	escape, err := f.iss.DownloadToken("/etc/passwd")
	require.NoError(t, err)
	_, _, err = f.iss.OpenDownload(ctx, escape)
	assert.ErrorIs(t, err, ErrInvalidDownloadToken)

	assert.Equal(t, "https://certs.example.org/certificates/download/"+token, f.iss.DownloadURL(token))
	qr, err := f.iss.DownloadQR(token, 128)
	require.NoError(t, err)
	img, err := imaging.Decode(bytes.NewReader(qr))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
}
