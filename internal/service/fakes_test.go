package service

import (
	"context"
	"time"

	"github.com/costwise/keygate/internal/costengine"
	"github.com/costwise/keygate/internal/lock"
	"github.com/costwise/keygate/internal/model"
	"github.com/costwise/keygate/internal/repository"
	"github.com/gofrs/uuid/v5"
)

type fakeSecretRepo struct {
	putOrg    string
	putSecret string
	putCalls  int
	putErr    error

	getRec *model.SecretRecord
	getErr error
}

var _ repository.SecretRepository = (*fakeSecretRepo)(nil)

func (f *fakeSecretRepo) Put(_ context.Context, orgSlug, secret string) error {
	f.putCalls++
	f.putOrg, f.putSecret = orgSlug, secret
	return f.putErr
}

func (f *fakeSecretRepo) Get(_ context.Context, _ string) (*model.SecretRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getRec, nil
}

type fakeTokenRepo struct {
	inserted  []*model.RevealToken
	insertErr error

	redeemOrg string
	redeemErr error

	sweptN   int64
	sweepErr error
}

var _ repository.TokenRepository = (*fakeTokenRepo)(nil)

func (f *fakeTokenRepo) Insert(_ context.Context, t *model.RevealToken) error {
	f.inserted = append(f.inserted, t)
	return f.insertErr
}

func (f *fakeTokenRepo) Redeem(_ context.Context, _ string, _ uuid.UUID) (string, error) {
	if f.redeemErr != nil {
		return "", f.redeemErr
	}
	return f.redeemOrg, nil
}

func (f *fakeTokenRepo) DeleteExpired(_ context.Context) (int64, error) {
	return f.sweptN, f.sweepErr
}

type fakeDirectoryRepo struct {
	calls   int
	last    *model.OrgRecord
	errSeq  []error // popped per call; empty means success
}

var _ repository.DirectoryRepository = (*fakeDirectoryRepo)(nil)

func (f *fakeDirectoryRepo) UpsertOrganization(_ context.Context, org *model.OrgRecord) error {
	f.calls++
	f.last = org
	if len(f.errSeq) == 0 {
		return nil
	}
	err := f.errSeq[0]
	f.errSeq = f.errSeq[1:]
	return err
}

type fakeCompensationRepo struct {
	recorded []*model.CompensationRecord
	err      error
}

var _ repository.CompensationRepository = (*fakeCompensationRepo)(nil)

func (f *fakeCompensationRepo) Upsert(_ context.Context, rec *model.CompensationRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, rec)
	return nil
}

type fakeQueueRepo struct {
	enqueued   []*model.SyncQueueEntry
	enqueueErr error

	pending    []model.SyncQueueEntry
	fetchErr   error
	fetchLimit int

	completed []uuid.UUID
	failed    map[uuid.UUID]string

	stats    *model.QueueStats
	statsErr error
}

var _ repository.QueueRepository = (*fakeQueueRepo)(nil)

func (f *fakeQueueRepo) Enqueue(_ context.Context, e *model.SyncQueueEntry) error {
	if f.enqueueErr != nil {
		return f.enqueueErr
	}
	f.enqueued = append(f.enqueued, e)
	return nil
}

func (f *fakeQueueRepo) FetchPending(_ context.Context, limit int) ([]model.SyncQueueEntry, error) {
	f.fetchLimit = limit
	return f.pending, f.fetchErr
}

func (f *fakeQueueRepo) MarkCompleted(_ context.Context, id uuid.UUID) error {
	f.completed = append(f.completed, id)
	return nil
}

func (f *fakeQueueRepo) MarkFailed(_ context.Context, id uuid.UUID, errMsg string) error {
	if f.failed == nil {
		f.failed = make(map[uuid.UUID]string)
	}
	f.failed[id] = errMsg
	return nil
}

func (f *fakeQueueRepo) Stats(_ context.Context) (*model.QueueStats, error) {
	return f.stats, f.statsErr
}

type fakeEngine struct {
	ready    bool
	readyErr error

	createResp   *costengine.OnboardResponse
	createErrSeq []error // popped per call; empty means success
	createCalls  []costengine.OnboardRequest

	rotateOut     string
	rotateErr     error
	rotateOrg     string
	rotateAuthKey string

	updateErr      error
	updateCalls    int
	updateOrg      string
	updateLim      costengine.Limits
	updatePanicOrg string

	verifyErr error
}

var _ EngineClient = (*fakeEngine)(nil)

func (f *fakeEngine) Ready(_ context.Context) (bool, error) {
	return f.ready, f.readyErr
}

func (f *fakeEngine) CreateOrganization(_ context.Context, req costengine.OnboardRequest) (*costengine.OnboardResponse, error) {
	f.createCalls = append(f.createCalls, req)
	if len(f.createErrSeq) > 0 {
		err := f.createErrSeq[0]
		f.createErrSeq = f.createErrSeq[1:]
		if err != nil {
			return nil, err
		}
	}
	return f.createResp, nil
}

func (f *fakeEngine) RotateKey(_ context.Context, orgSlug, currentKey string) (string, error) {
	f.rotateOrg, f.rotateAuthKey = orgSlug, currentKey
	if f.rotateErr != nil {
		return "", f.rotateErr
	}
	return f.rotateOut, nil
}

func (f *fakeEngine) UpdateLimits(_ context.Context, orgSlug string, lim costengine.Limits) error {
	if f.updatePanicOrg != "" && orgSlug == f.updatePanicOrg {
		panic("engine client wedged")
	}
	f.updateCalls++
	f.updateOrg, f.updateLim = orgSlug, lim
	return f.updateErr
}

func (f *fakeEngine) VerifyKey(_ context.Context, _ string) error {
	return f.verifyErr
}

type fakeLocker struct {
	handle     lock.Handle
	acquireErr error
	acquired   []string
	released   []lock.Handle
	releaseErr error
}

var _ lock.Locker = (*fakeLocker)(nil)

func (f *fakeLocker) Acquire(_ context.Context, orgSlug string) (lock.Handle, error) {
	f.acquired = append(f.acquired, orgSlug)
	if f.acquireErr != nil {
		return lock.Handle{}, f.acquireErr
	}
	return f.handle, nil
}

func (f *fakeLocker) Release(_ context.Context, h lock.Handle) error {
	f.released = append(f.released, h)
	return f.releaseErr
}

type fakeReveal struct {
	grant    model.RevealGrant
	issueErr error
	issued   []string // org slugs

	redeemOut string
	redeemErr error
}

var _ RevealTokenService = (*fakeReveal)(nil)

func (f *fakeReveal) Issue(_ context.Context, orgSlug string, _ uuid.UUID) (model.RevealGrant, error) {
	f.issued = append(f.issued, orgSlug)
	if f.issueErr != nil {
		return model.RevealGrant{}, f.issueErr
	}
	return f.grant, nil
}

func (f *fakeReveal) Redeem(_ context.Context, _ string, _ uuid.UUID) (string, error) {
	return f.redeemOut, f.redeemErr
}

func grantFixture() model.RevealGrant {
	return model.RevealGrant{Token: "tok-fixture", ExpiresAt: time.Now().Add(15 * time.Minute)}
}
