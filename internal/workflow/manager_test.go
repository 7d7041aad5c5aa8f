package workflow_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"transcoder/internal/logging"
	"transcoder/internal/notifications"
	"transcoder/internal/pipeline"
	"transcoder/internal/queue"
	"transcoder/internal/workflow"
)

type recordingNotifier struct {
	mu      sync.Mutex
	updates []notifications.Update
	err     error
	// delay runs before an update is recorded, standing in for a slow backend.
	delay func(notifications.Update)
}

func (n *recordingNotifier) NotifyStatus(_ context.Context, update notifications.Update) error {
	if n.delay != nil {
		n.delay(update)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, update)
	return n.err
}

func (n *recordingNotifier) events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.updates))
	for _, u := range n.updates {
		out = append(out, describe(u))
	}
	return out
}

func describe(u notifications.Update) string {
	s := fmt.Sprintf("%s:%s", u.JobID, u.Status)
	if u.QueuePosition != nil {
		s += fmt.Sprintf("@%d", *u.QueuePosition)
	}
	if u.ManifestKey != nil {
		s += "=" + *u.ManifestKey
	}
	return s
}

type stubRunner struct {
	mu       sync.Mutex
	order    []string
	gates    map[string]chan struct{}
	started  chan string
	fail     map[string]bool
	onRun    func(job queue.Job)
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newStubRunner() *stubRunner {
	return &stubRunner{
		gates:   make(map[string]chan struct{}),
		started: make(chan string, 64),
		fail:    make(map[string]bool),
	}
}

func (r *stubRunner) gate(id string) chan struct{} {
	ch := make(chan struct{})
	r.mu.Lock()
	r.gates[id] = ch
	r.mu.Unlock()
	return ch
}

func (r *stubRunner) Run(_ context.Context, job queue.Job) (pipeline.Result, error) {
	current := r.inFlight.Add(1)
	defer r.inFlight.Add(-1)
	for {
		seen := r.maxSeen.Load()
		if current <= seen || r.maxSeen.CompareAndSwap(seen, current) {
			break
		}
	}

	r.mu.Lock()
	r.order = append(r.order, job.ID)
	gate := r.gates[job.ID]
	fail := r.fail[job.ID]
	onRun := r.onRun
	r.mu.Unlock()

	r.started <- job.ID
	if onRun != nil {
		onRun(job)
	}
	if gate != nil {
		<-gate
	}
	if fail {
		return pipeline.Result{}, &pipeline.Error{Stage: pipeline.StageTranscode, Message: "encode 360p", Err: errors.New("bad input")}
	}
	return pipeline.Result{MasterKey: "hls/" + job.ID + "/master.m3u8"}, nil
}

func (r *stubRunner) processed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func waitStarted(t *testing.T, r *stubRunner, want string) {
	t.Helper()
	select {
	case got := <-r.started:
		if got != want {
			t.Fatalf("expected %s to start, got %s", want, got)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s to start", want)
	}
}

func job(id string) queue.Job {
	return queue.Job{ID: id, SourceFilename: id + ".mp4", SourceKey: "uploads/" + id + ".mp4"}
}

func TestAdmitReportsPositionsAndDrainsInOrder(t *testing.T) {
	runner := newStubRunner()
	releaseA := runner.gate("a")
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())
	ctx := context.Background()

	if pos, err := mgr.Admit(ctx, job("a")); err != nil || pos != 1 {
		t.Fatalf("Admit(a) = %d, %v", pos, err)
	}
	waitStarted(t, runner, "a")

	if pos, err := mgr.Admit(ctx, job("b")); err != nil || pos != 1 {
		t.Fatalf("Admit(b) = %d, %v", pos, err)
	}
	if pos, err := mgr.Admit(ctx, job("c")); err != nil || pos != 2 {
		t.Fatalf("Admit(c) = %d, %v", pos, err)
	}

	status := mgr.Status()
	if !status.Draining || status.Active == nil || status.Active.ID != "a" || len(status.Pending) != 2 {
		t.Fatalf("unexpected status while draining: %+v", status)
	}

	close(releaseA)
	mgr.Wait()

	want := []string{
		"a:queued@1",
		"a:processing",
		"b:queued@1",
		"c:queued@2",
		"a:completed=hls/a/master.m3u8",
		"c:queued@1",
		"b:processing",
		"b:completed=hls/b/master.m3u8",
		"c:processing",
		"c:completed=hls/c/master.m3u8",
	}
	if got := notifier.events(); strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Fatalf("unexpected notifications\n got: %v\nwant: %v", got, want)
	}
	if got := runner.processed(); strings.Join(got, ",") != "a,b,c" {
		t.Fatalf("unexpected processing order %v", got)
	}

	status = mgr.Status()
	if status.Draining || status.Active != nil || len(status.Pending) != 0 || status.Processed != 3 {
		t.Fatalf("unexpected idle status: %+v", status)
	}
}

func TestAdmitRejectsInvalidJobWithoutSideEffects(t *testing.T) {
	runner := newStubRunner()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())

	for _, j := range []queue.Job{{ID: "", SourceKey: "k"}, {ID: "x", SourceKey: "  "}, {ID: "../x", SourceKey: "k"}} {
		if _, err := mgr.Admit(context.Background(), j); !errors.Is(err, queue.ErrInvalidJob) {
			t.Fatalf("expected ErrInvalidJob, got %v", err)
		}
	}
	mgr.Wait()
	if len(notifier.events()) != 0 {
		t.Fatalf("expected no notifications, got %v", notifier.events())
	}
	if status := mgr.Status(); status.Draining || len(status.Pending) != 0 {
		t.Fatalf("queue mutated by invalid job: %+v", status)
	}
}

func TestAdmitRejectsDuplicatePendingJob(t *testing.T) {
	runner := newStubRunner()
	release := runner.gate("a")
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())
	ctx := context.Background()

	if _, err := mgr.Admit(ctx, job("a")); err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	waitStarted(t, runner, "a")
	if _, err := mgr.Admit(ctx, job("b")); err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if _, err := mgr.Admit(ctx, job("b")); !errors.Is(err, queue.ErrDuplicateJob) {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
	if pos, err := mgr.Admit(ctx, job("a")); err != nil || pos != 2 {
		t.Fatalf("re-admitting the active job should queue it again, got %d %v", pos, err)
	}
	close(release)
	mgr.Wait()

	if got := runner.processed(); strings.Join(got, ",") != "a,b,a" {
		t.Fatalf("unexpected processing order %v", got)
	}
}

func TestFailedJobDoesNotBlockQueue(t *testing.T) {
	runner := newStubRunner()
	runner.fail["a"] = true
	release := runner.gate("a")
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())
	ctx := context.Background()

	mgr.Admit(ctx, job("a"))
	waitStarted(t, runner, "a")
	mgr.Admit(ctx, job("b"))
	close(release)
	mgr.Wait()

	events := notifier.events()
	if !contains(events, "a:failed") || !contains(events, "b:completed=hls/b/master.m3u8") {
		t.Fatalf("unexpected notifications %v", events)
	}
	status := mgr.Status()
	if status.Failed != 1 || status.Processed != 1 {
		t.Fatalf("unexpected counters %+v", status)
	}
	if !strings.Contains(status.LastError, "bad input") {
		t.Fatalf("expected last error recorded, got %q", status.LastError)
	}
	if status.LastJob == nil || status.LastJob.Job.ID != "b" || status.LastJob.Status != queue.StatusCompleted {
		t.Fatalf("unexpected last job %+v", status.LastJob)
	}
}

func TestRunnerPanicBecomesFailure(t *testing.T) {
	runner := newStubRunner()
	runner.onRun = func(j queue.Job) {
		if j.ID == "boom" {
			panic("nil map")
		}
	}
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())

	mgr.Admit(context.Background(), job("boom"))
	mgr.Admit(context.Background(), job("ok"))
	mgr.Wait()

	events := notifier.events()
	if !contains(events, "boom:failed") || !contains(events, "ok:completed=hls/ok/master.m3u8") {
		t.Fatalf("unexpected notifications %v", events)
	}
	if last := mgr.Status().LastJob; last == nil || last.Job.ID != "ok" {
		t.Fatalf("unexpected last job %+v", last)
	}
}

func TestSingleDrainUnderConcurrentAdmission(t *testing.T) {
	runner := newStubRunner()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())

	const jobs = 40
	var wg sync.WaitGroup
	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := mgr.Admit(context.Background(), job(fmt.Sprintf("j%02d", i))); err != nil {
				t.Errorf("Admit returned error: %v", err)
			}
		}(i)
	}
	wg.Wait()
	mgr.Wait()

	if got := len(runner.processed()); got != jobs {
		t.Fatalf("expected %d jobs processed, got %d", jobs, got)
	}
	if maxSeen := runner.maxSeen.Load(); maxSeen != 1 {
		t.Fatalf("expected at most one job in flight, saw %d", maxSeen)
	}
	seen := make(map[string]int)
	for _, id := range runner.processed() {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("job %s processed %d times", id, n)
		}
	}
}

func TestJobAdmittedDuringProcessingIsDrained(t *testing.T) {
	runner := newStubRunner()
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())

	var once sync.Once
	runner.onRun = func(j queue.Job) {
		once.Do(func() {
			if pos, err := mgr.Admit(context.Background(), job("late")); err != nil || pos != 1 {
				t.Errorf("late Admit = %d, %v", pos, err)
			}
		})
	}

	mgr.Admit(context.Background(), job("first"))
	mgr.Wait()

	if got := runner.processed(); strings.Join(got, ",") != "first,late" {
		t.Fatalf("unexpected processing order %v", got)
	}
	if mgr.Status().Draining {
		t.Fatal("expected drain flag cleared once idle")
	}
}

func TestNotifierFailureIsSwallowed(t *testing.T) {
	runner := newStubRunner()
	notifier := &recordingNotifier{err: errors.New("backend down")}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())

	if _, err := mgr.Admit(context.Background(), job("a")); err != nil {
		t.Fatalf("notification errors must not fail admission: %v", err)
	}
	mgr.Wait()
	if mgr.Status().Processed != 1 {
		t.Fatal("expected job to complete despite notification failures")
	}
}

type recordingStore struct {
	mu      sync.Mutex
	updates []string
}

func (r *recordingStore) Record(_ context.Context, update notifications.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, describe(update))
	return nil
}

func TestRecorderReceivesEveryUpdate(t *testing.T) {
	runner := newStubRunner()
	notifier := &recordingNotifier{}
	recorder := &recordingStore{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop(), workflow.WithRecorder(recorder))

	mgr.Admit(context.Background(), job("a"))
	mgr.Wait()

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	if strings.Join(recorder.updates, ",") != strings.Join(notifier.events(), ",") {
		t.Fatalf("recorder %v diverged from notifier %v", recorder.updates, notifier.events())
	}
}

func TestStopFinishesActiveJobAndRejectsAdmission(t *testing.T) {
	runner := newStubRunner()
	release := runner.gate("a")
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())
	ctx := context.Background()

	mgr.Admit(ctx, job("a"))
	waitStarted(t, runner, "a")
	mgr.Admit(ctx, job("b"))

	stopped := make(chan struct{})
	go func() {
		mgr.Stop()
		close(stopped)
	}()

	deadline := time.Now().Add(5 * time.Second)
	for !mgr.Status().Stopped {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for stop flag")
		}
		time.Sleep(time.Millisecond)
	}
	if _, err := mgr.Admit(ctx, job("c")); !errors.Is(err, workflow.ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}

	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
	if got := runner.processed(); strings.Join(got, ",") != "a" {
		t.Fatalf("expected only the active job to finish, got %v", got)
	}
	events := notifier.events()
	if !contains(events, "a:completed=hls/a/master.m3u8") {
		t.Fatalf("expected active job completion, got %v", events)
	}
	if last := events[len(events)-1]; last != "b:failed" {
		t.Fatalf("expected dropped job reported failed last, got %v", events)
	}
	if status := mgr.Status(); status.Failed != 1 || len(status.Pending) != 0 {
		t.Fatalf("unexpected status after stop: %+v", status)
	}
}

func TestUpdatesLeaveInQueueOrderWithSlowNotifier(t *testing.T) {
	runner := newStubRunner()
	release := runner.gate("a")
	admitting := make(chan struct{})
	notifier := &recordingNotifier{}
	notifier.delay = func(u notifications.Update) {
		if u.JobID == "b" && u.Status == queue.StatusQueued {
			close(admitting)
			time.Sleep(100 * time.Millisecond)
		}
	}
	mgr := workflow.NewManager(runner, notifier, logging.NewNop())
	ctx := context.Background()

	if _, err := mgr.Admit(ctx, job("a")); err != nil {
		t.Fatalf("Admit(a) returned error: %v", err)
	}
	waitStarted(t, runner, "a")

	admitted := make(chan error, 1)
	go func() {
		_, err := mgr.Admit(ctx, job("b"))
		admitted <- err
	}()
	<-admitting
	close(release)

	if err := <-admitted; err != nil {
		t.Fatalf("Admit(b) returned error: %v", err)
	}
	waitStarted(t, runner, "b")
	mgr.Wait()

	var forB []string
	for _, e := range notifier.events() {
		if strings.HasPrefix(e, "b:") {
			forB = append(forB, e)
		}
	}
	want := "b:queued@1,b:processing,b:completed=hls/b/master.m3u8"
	if got := strings.Join(forB, ","); got != want {
		t.Fatalf("updates for b = %s, want %s (all: %v)", got, want, notifier.events())
	}
}

func TestCancelledBaseContextDoesNotAbortActiveJob(t *testing.T) {
	runner := newStubRunner()
	release := runner.gate("a")
	seen := make(chan error, 1)
	base, cancel := context.WithCancel(context.Background())
	notifier := &recordingNotifier{}
	mgr := workflow.NewManager(ctxRunner{runner: runner, seen: seen}, notifier, logging.NewNop(), workflow.WithBaseContext(base))

	if _, err := mgr.Admit(context.Background(), job("a")); err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	waitStarted(t, runner, "a")
	cancel()
	close(release)
	mgr.Wait()

	if err := <-seen; err != nil {
		t.Fatalf("expected job context to survive base cancellation, got %v", err)
	}
	if !contains(notifier.events(), "a:completed=hls/a/master.m3u8") {
		t.Fatalf("expected completion, got %v", notifier.events())
	}
}

// ctxRunner reports the job context's error once the wrapped run returns.
type ctxRunner struct {
	runner *stubRunner
	seen   chan error
}

func (r ctxRunner) Run(ctx context.Context, job queue.Job) (pipeline.Result, error) {
	result, err := r.runner.Run(ctx, job)
	r.seen <- ctx.Err()
	return result, err
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
