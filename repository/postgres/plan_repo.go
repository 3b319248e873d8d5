package postgres

import (
	"context"
	"errors"

	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fastygo/storefront/domain"
	"github.com/fastygo/storefront/repository"
)

type planRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository creates a Postgres-backed plan catalog.
func NewPlanRepository(pool *pgxpool.Pool) repository.PlanRepository {
	return &planRepository{pool: pool}
}

func (r *planRepository) Get(ctx context.Context, id string) (domain.Plan, error) {
	const query = `
	SELECT id, name, price_amount::text, currency, billing_interval, trial_days
	FROM subscription_plans
	WHERE id = $1 AND active
	`
	return scanPlan(r.pool.QueryRow(ctx, query, id))
}

func (r *planRepository) List(ctx context.Context) ([]domain.Plan, error) {
	const query = `
	SELECT id, name, price_amount::text, currency, billing_interval, trial_days
	FROM subscription_plans
	WHERE active
	ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []domain.Plan
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func (r *planRepository) Save(ctx context.Context, plan domain.Plan) error {
	const query = `
	INSERT INTO subscription_plans (id, name, price_amount, currency, billing_interval, trial_days, active)
	VALUES ($1, $2, $3::numeric, $4, $5, $6, TRUE)
	ON CONFLICT (id) DO UPDATE
	SET name = EXCLUDED.name,
		price_amount = EXCLUDED.price_amount,
		currency = EXCLUDED.currency,
		billing_interval = EXCLUDED.billing_interval,
		trial_days = EXCLUDED.trial_days,
		active = TRUE
	`
	_, err := r.pool.Exec(ctx, query,
		plan.ID(),
		plan.Name(),
		plan.Price().Amount().String(),
		plan.Price().Currency(),
		string(plan.Interval()),
		plan.TrialDays(),
	)
	return err
}

func scanPlan(row interface {
	Scan(dest ...interface{}) error
}) (domain.Plan, error) {
	var (
		id, name, amount, currency, interval string
		trialDays                            int
	)
	if err := row.Scan(&id, &name, &amount, &currency, &interval, &trialDays); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Plan{}, domain.ErrPlanNotFound
		}
		return domain.Plan{}, err
	}
	value, err := decimal.Parse(amount)
	if err != nil {
		return domain.Plan{}, err
	}
	price, err := domain.NewMoney(value.Round(domain.MoneyScale), currency)
	if err != nil {
		return domain.Plan{}, err
	}
	return domain.NewPlan(id, name, price, domain.BillingInterval(interval), trialDays)
}
