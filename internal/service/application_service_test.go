package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iamyinka/reliefproj/internal/domain"
	"github.com/iamyinka/reliefproj/internal/events"
	"github.com/iamyinka/reliefproj/internal/repository"
)

func TestSubmit_CreatesPendingApplication(t *testing.T) {
	f := newFixture(t)

	resp := f.submit("+234 801 234 5678")

	assert.Regexp(t, regexp.MustCompile(`^GCR2510\d{4}$`), resp.ReferenceNumber)
	assert.Equal(t, domain.ApplicationPending, resp.Status)
	assert.Equal(t, "08012345678", resp.Phone)
	assert.Equal(t, "Ada Obi", resp.FullName)

	_, total, err := f.store.ListApplications(f.ctx, repository.ApplicationsFilter{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	require.Len(t, f.sender.sent, 1)
	assert.Equal(t, "+2348012345678", f.sender.sent[0].To)
	assert.Contains(t, f.sender.sent[0].Message, resp.ReferenceNumber)
	assert.Equal(t, []string{events.ApplicationSubmitted}, f.publisher.types())
}

func TestSubmit_ValidationErrors(t *testing.T) {
	f := newFixture(t)

	_, err := f.apps.Submit(f.ctx, SubmitRequest{})
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	for _, field := range []string{"first_name", "last_name", "phone", "address", "family_size",
		"church_member", "selected_package", "preferred_date", "preferred_time", "terms_agreement"} {
		assert.Contains(t, verr.Fields, field)
	}

	_, total, _ := f.store.ListApplications(f.ctx, repository.ApplicationsFilter{}, 1, 20)
	assert.Zero(t, total)
	assert.Empty(t, f.sender.sent)
}

func TestSubmit_FieldRules(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture, r *SubmitRequest)
		field  string
	}{
		{"bad phone", func(_ *fixture, r *SubmitRequest) { r.Phone = "0612345678" }, "phone"},
		{"bad email", func(_ *fixture, r *SubmitRequest) { r.Email = "not-an-email" }, "email"},
		{"terms not accepted", func(_ *fixture, r *SubmitRequest) { r.TermsAgreement = false }, "terms_agreement"},
		{"unknown package", func(_ *fixture, r *SubmitRequest) { r.SelectedPackage = "deluxe" }, "selected_package"},
		{"inactive package", func(_ *fixture, r *SubmitRequest) { r.SelectedPackage = string(domain.PackageSenior) }, "selected_package"},
		{"missing package row", func(_ *fixture, r *SubmitRequest) { r.SelectedPackage = string(domain.PackageEmergency) }, "selected_package"},
		{"past date", func(f *fixture, r *SubmitRequest) { r.PreferredDate = domain.DateString(f.now.AddDate(0, 0, -1)) }, "preferred_date"},
		{"bad date", func(_ *fixture, r *SubmitRequest) { r.PreferredDate = "06/10/2025" }, "preferred_date"},
		{"bad slot", func(_ *fixture, r *SubmitRequest) { r.PreferredTime = "midnight" }, "preferred_time"},
		{"bad alternative slot", func(_ *fixture, r *SubmitRequest) { r.AlternativeTime = "noon" }, "alternative_time"},
		{"church member", func(_ *fixture, r *SubmitRequest) { r.ChurchMember = "maybe" }, "church_member"},
		{"family size", func(_ *fixture, r *SubmitRequest) { r.FamilySize = 0 }, "family_size"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			req := f.request("08012345678")
			tt.mutate(f, &req)

			_, err := f.apps.Submit(f.ctx, req)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Len(t, verr.Fields, 1)
		})
	}
}

func TestSubmit_TodayIsAcceptedAsPreferredDate(t *testing.T) {
	f := newFixture(t)
	req := f.request("08012345678")
	req.PreferredDate = domain.DateString(f.now)

	_, err := f.apps.Submit(f.ctx, req)
	require.NoError(t, err)
}

func TestSubmit_BlockedWithinRestrictionWindow(t *testing.T) {
	f := newFixture(t)
	first := f.submit("08012345678")

	f.advance(5 * 24 * time.Hour)
	_, err := f.apps.Submit(f.ctx, f.request("2348012345678"))

	var blocked *domain.EligibilityBlockedError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, 16, blocked.DaysRemaining)
	require.NotNil(t, blocked.Blocking)
	assert.Equal(t, first.ReferenceNumber, blocked.Blocking.ReferenceNumber)

	_, total, _ := f.store.ListApplications(f.ctx, repository.ApplicationsFilter{}, 1, 20)
	assert.Equal(t, 1, total)
}

func TestSubmit_AllowedAfterWindow(t *testing.T) {
	f := newFixture(t)
	f.submit("08012345678")

	f.advance(22 * 24 * time.Hour)
	f.submit("08012345678")
}

func TestSubmit_AllowedAfterRejection(t *testing.T) {
	f := newFixture(t)
	first := f.submit("08012345678")
	_, err := f.apps.Reject(f.ctx, ReviewRequest{ApplicationID: first.ID, Reviewer: "reviewer-1"})
	require.NoError(t, err)

	f.advance(time.Hour)
	f.submit("08012345678")
}

func TestSubmit_RetriesReferenceCollision(t *testing.T) {
	f := newFixture(t)
	f.codes.refs = []string{"GCR25101111", "GCR25101111", "GCR25102222"}

	first := f.submit("08012345678")
	second := f.submit("08022222222")

	assert.Equal(t, "GCR25101111", first.ReferenceNumber)
	assert.Equal(t, "GCR25102222", second.ReferenceNumber)
}

func TestSubmit_GivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{maxAttempts: 3})
	f.codes.refs = []string{"GCR25101111", "GCR25101111", "GCR25101111", "GCR25101111"}
	f.submit("08012345678")

	_, err := f.apps.Submit(f.ctx, f.request("08022222222"))
	assert.ErrorIs(t, err, domain.ErrCodeCollision)

	_, total, _ := f.store.ListApplications(f.ctx, repository.ApplicationsFilter{}, 1, 20)
	assert.Equal(t, 1, total)
}

func TestApprove_IssuesScheduledVoucher(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")

	resp := f.approve(app.ID)

	assert.Equal(t, domain.ApplicationApproved, resp.Status)
	assert.Len(t, resp.PickupCode, 15)
	assert.Regexp(t, regexp.MustCompile(`^GCR[0-9A-F]{12}$`), resp.PickupCode)
	assert.Equal(t, domain.DateString(f.now.AddDate(0, 0, 3)), resp.ScheduledDate)
	assert.Equal(t, "morning", resp.ScheduledTime)

	v, err := f.store.GetVoucher(f.ctx, resp.PickupID)
	require.NoError(t, err)
	assert.Equal(t, domain.VoucherScheduled, v.Status)
	assert.Equal(t, app.ID, v.ApplicationID)
	assert.NotEmpty(t, v.QRImage)

	stored, err := f.store.GetApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, "reviewer-1", stored.ReviewedBy)
	require.NotNil(t, stored.ReviewedAt)
	assert.Equal(t, "ok", stored.ReviewNotes)

	// approval does not reserve stock
	p, err := f.store.GetPackage(f.ctx, f.smallPackageID)
	require.NoError(t, err)
	assert.Equal(t, 50, p.AvailableQuantity)

	assert.Contains(t, f.publisher.types(), events.ApplicationApproved)
	assert.Contains(t, f.sender.sent[len(f.sender.sent)-1].Message, resp.PickupCode)
}

func TestApprove_SecondApprovalFails(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")
	f.approve(app.ID)

	_, err := f.apps.Approve(f.ctx, ReviewRequest{ApplicationID: app.ID, Reviewer: "reviewer-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = f.apps.Reject(f.ctx, ReviewRequest{ApplicationID: app.ID, Reviewer: "reviewer-2"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	lookup, err := f.store.VoucherForApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.True(t, lookup.Found)
}

func TestApprove_RetriesPickupCodeCollision(t *testing.T) {
	f := newFixture(t)
	f.codes.pickups = []string{"GCRAAAAAAAAAAAA", "GCRAAAAAAAAAAAA", "GCRBBBBBBBBBBBB"}
	a1 := f.submit("08012345678")
	a2 := f.submit("08022222222")

	assert.Equal(t, "GCRAAAAAAAAAAAA", f.approve(a1.ID).PickupCode)
	assert.Equal(t, "GCRBBBBBBBBBBBB", f.approve(a2.ID).PickupCode)
}

func TestApprove_RenderFailureDoesNotFailApproval(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{renderer: failingRenderer{}})
	app := f.submit("08012345678")

	resp := f.approve(app.ID)

	v, err := f.store.GetVoucher(f.ctx, resp.PickupID)
	require.NoError(t, err)
	assert.Empty(t, v.QRImage)
}

func TestApprove_UnknownApplication(t *testing.T) {
	f := newFixture(t)

	_, err := f.apps.Approve(f.ctx, ReviewRequest{ApplicationID: "not-a-uuid", Reviewer: "r"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.apps.Approve(f.ctx, ReviewRequest{ApplicationID: "7d8a3c1e-3a53-4f43-9f1e-2f8c1b9a0c11", Reviewer: "r"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestReject_NoVoucher(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")

	resp, err := f.apps.Reject(f.ctx, ReviewRequest{ApplicationID: app.ID, Reviewer: "reviewer-1", Notes: "duplicate household"})
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationRejected, resp.Status)
	assert.Empty(t, resp.PickupCode)

	lookup, err := f.store.VoucherForApplication(f.ctx, app.ID)
	require.NoError(t, err)
	assert.False(t, lookup.Found)
}

func TestCheckStatus(t *testing.T) {
	f := newFixture(t)
	app := f.submit("08012345678")

	view, err := f.apps.CheckStatus(f.ctx, "", app.ReferenceNumber)
	require.NoError(t, err)
	assert.Equal(t, domain.ApplicationPending, view.Status)
	assert.Nil(t, view.Pickup)

	approved := f.approve(app.ID)
	view, err = f.apps.CheckStatus(f.ctx, "+2348012345678", "")
	require.NoError(t, err)
	assert.Equal(t, "Approved", view.StatusLabel)
	require.NotNil(t, view.Pickup)
	assert.Equal(t, approved.PickupCode, view.Pickup.PickupCode)
	assert.Equal(t, "2025-10-13", view.Pickup.ExpiryDate)
	assert.False(t, view.Pickup.IsExpired)

	_, err = f.apps.CheckStatus(f.ctx, "08099999999", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.apps.CheckStatus(f.ctx, "12345", "")
	assert.ErrorIs(t, err, domain.ErrInvalidPhoneFormat)
	_, err = f.apps.CheckStatus(f.ctx, "", "")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	a1 := f.submit("08012345678")
	f.submit("08022222222")
	f.approve(a1.ID)

	list, err := f.apps.List(f.ctx, ListApplicationsRequest{Status: "approved"})
	require.NoError(t, err)
	require.Equal(t, 1, list.Total)
	assert.Equal(t, a1.ReferenceNumber, list.Items[0].ReferenceNumber)

	_, err = f.apps.List(f.ctx, ListApplicationsRequest{Status: "DONE"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	detail, err := f.apps.Get(f.ctx, a1.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.Pickup)
	assert.Equal(t, domain.VoucherScheduled, detail.Pickup.Status)
	assert.Len(t, detail.Notifications, 2)
}
