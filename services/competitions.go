package services

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"kavyalok/logger"
	"kavyalok/mail"
	"kavyalok/models"
	"kavyalok/payments"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrPaymentsDisabled is returned when no PayU merchant is configured.
var ErrPaymentsDisabled = errors.New("payments are not configured")

// PaymentPages are the frontend pages a settled payment redirects to.
type PaymentPages struct {
	Success string
	Failure string
}

type CompetitionService struct {
	users        UserStore
	competitions CompetitionStore
	payu         *payments.PayU
	pages        PaymentPages
	mailer       mail.Mailer
	now          func() time.Time
}

// NewCompetitionService wires the competition flows. payu may be nil, in
// which case paid registration is unavailable.
func NewCompetitionService(users UserStore, competitions CompetitionStore, payu *payments.PayU, pages PaymentPages, mailer mail.Mailer) *CompetitionService {
	return &CompetitionService{
		users:        users,
		competitions: competitions,
		payu:         payu,
		pages:        pages,
		mailer:       mailer,
		now:          time.Now,
	}
}

func (s *CompetitionService) List(ctx context.Context) ([]models.Competition, error) {
	competitions, err := s.competitions.ListCompetitions(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list competitions")
	}
	return competitions, nil
}

// Register adds email to the competition's participants. Registering twice
// leaves a single entry. Competitions with an entry fee only accept emails
// holding a successful payment.
func (s *CompetitionService) Register(ctx context.Context, email, competitionHex string) error {
	id, err := parseID(competitionHex, "competitionId")
	if err != nil {
		return err
	}
	if _, err := s.users.GetUserByEmail(ctx, email); err != nil {
		return notFoundOr(err, "user not found", "load participant")
	}
	competition, err := s.competitions.GetCompetition(ctx, id)
	if err != nil {
		return notFoundOr(err, "competition not found", "load competition")
	}
	if !isFree(competition.Fee) {
		paid, err := s.competitions.HasSettledPayment(ctx, id, email)
		if err != nil {
			return errors.Wrap(err, "check payment")
		}
		if !paid {
			return Forbiddenf("entry fee has not been paid")
		}
	}
	if err := s.competitions.AddParticipant(ctx, id, email); err != nil {
		return notFoundOr(err, "competition not found", "register participant")
	}
	return nil
}

// InitiatePayment records a pending payment for the entry fee and returns
// the signed PayU checkout form.
func (s *CompetitionService) InitiatePayment(ctx context.Context, email, competitionHex string) (*payments.Request, error) {
	if s.payu == nil {
		return nil, ErrPaymentsDisabled
	}
	id, err := parseID(competitionHex, "competitionId")
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user not found", "load payer")
	}
	competition, err := s.competitions.GetCompetition(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "competition not found", "load competition")
	}
	if models.HasString(competition.Participants, email) {
		return nil, Conflictf("already registered for this competition")
	}
	if !competition.Deadline.IsZero() && s.now().After(competition.Deadline) {
		return nil, Validationf("registration for this competition has closed")
	}

	now := s.now()
	payment := &models.Payment{
		ID:            primitive.NewObjectID(),
		TxnID:         newTxnID(),
		Email:         email,
		CompetitionID: competition.ID,
		Amount:        competition.Fee,
		Status:        models.PaymentPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.competitions.CreatePayment(ctx, payment); err != nil {
		return nil, errors.Wrap(err, "record payment")
	}

	firstName := user.Name
	if firstName == "" {
		firstName = user.Username
	}
	req := s.payu.NewRequest(payment.TxnID, payment.Amount, competition.Title, firstName, email,
		[5]string{competition.ID.Hex()})
	return &req, nil
}

// HandleCallback settles a payment from the PayU callback form and returns
// the URL the browser is redirected to. A callback for a payment that was
// already settled is answered from the stored status.
func (s *CompetitionService) HandleCallback(ctx context.Context, form url.Values) (string, error) {
	if s.payu == nil {
		return "", ErrPaymentsDisabled
	}
	resp := payments.ParseResponse(form)
	log := logger.Log.WithField("txnid", resp.TxnID)

	if !s.payu.Verify(resp) {
		log.Warn("Rejected PayU callback with a bad hash")
		return "", Validationf("invalid payment signature")
	}
	payment, err := s.competitions.GetPaymentByTxnID(ctx, resp.TxnID)
	if err != nil {
		return "", notFoundOr(err, "payment not found", "load payment")
	}
	if !sameAmount(payment.Amount, resp.Amount) {
		log.WithField("expected", payment.Amount).WithField("got", resp.Amount).Warn("PayU callback amount mismatch")
		return "", Validationf("payment amount mismatch")
	}

	status := models.PaymentFailure
	if resp.Status == payments.StatusSuccess {
		status = models.PaymentSuccess
	}

	settled, err := s.competitions.UpdatePaymentStatus(ctx, resp.TxnID, status, resp.MihPayID)
	switch {
	case err == nil:
		payment = settled
	case isStoreNotFound(err):
		// Already settled by an earlier callback.
		return s.redirect(payment), nil
	default:
		return "", errors.Wrap(err, "settle payment")
	}

	if payment.Status != models.PaymentSuccess {
		log.WithField("status", resp.Status).Info("Payment failed")
		return s.redirect(payment), nil
	}

	if err := s.competitions.AddParticipant(ctx, payment.CompetitionID, payment.Email); err != nil {
		log.WithError(err).Error("Payment succeeded but participant was not added")
		return "", errors.Wrap(err, "register participant")
	}
	title := resp.ProductInfo
	if competition, err := s.competitions.GetCompetition(ctx, payment.CompetitionID); err == nil {
		title = competition.Title
	}
	if err := s.mailer.Send(ctx, mail.CompetitionConfirmation(payment.Email, title, payment.TxnID)); err != nil {
		log.WithError(err).Warn("Confirmation mail not sent")
	}
	log.WithField("email", payment.Email).Info("Competition entry paid")
	return s.redirect(payment), nil
}

func (s *CompetitionService) redirect(p *models.Payment) string {
	base := s.pages.Failure
	if p.Status == models.PaymentSuccess {
		base = s.pages.Success
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "txnid=" + url.QueryEscape(p.TxnID)
}

// newTxnID returns a 20 character transaction id; PayU accepts at most 25.
func isFree(fee string) bool {
	amount, err := strconv.ParseFloat(strings.TrimSpace(fee), 64)
	return fee == "" || (err == nil && amount <= 0)
}

func newTxnID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
}

// sameAmount compares two rupee amounts regardless of formatting ("199" vs
// "199.00").
func sameAmount(a, b string) bool {
	x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return false
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return false
	}
	diff := x - y
	return diff < 0.005 && diff > -0.005
}
