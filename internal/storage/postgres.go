package storage

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/lib/pq"

	"github.com/example/sharka/internal/models"
)

// PostgresStore implements RideStore, WalletStore, and EarningsStore
// over the schema in migrations/001_create_schema.sql.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) SaveRide(r *models.Ride) error {
	_, err := p.db.Exec(`INSERT INTO rides(
		id, rider_id, driver_id, pickup_lat, pickup_lng, pickup_address,
		dropoff_lat, dropoff_lng, dropoff_address, vehicle_type, base_fare,
		total_fare, distance_km, estimated_duration_mins, is_sharing_enabled,
		max_passengers, co_passengers, status, created_at, updated_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)`,
		r.ID, r.RiderID, r.DriverID, r.Pickup.Lat, r.Pickup.Lon, r.Pickup.Address,
		r.Dropoff.Lat, r.Dropoff.Lon, r.Dropoff.Address, string(r.VehicleType), r.BaseFare,
		r.TotalFare, r.DistanceKm, r.DurationMin, r.Sharing,
		r.MaxPassengers, pq.Array(r.CoPassengers), string(r.Status), r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) UpdateRideStatus(id string, status models.RideStatus) error {
	_, err := p.db.Exec(`UPDATE rides SET status=$1, updated_at=$2 WHERE id=$3`,
		string(status), time.Now(), id)
	return err
}

func (p *PostgresStore) GetRide(id string) (*models.Ride, bool, error) {
	row := p.db.QueryRow(`SELECT id, rider_id, driver_id, pickup_lat, pickup_lng, pickup_address,
		dropoff_lat, dropoff_lng, dropoff_address, vehicle_type, base_fare, total_fare,
		distance_km, estimated_duration_mins, is_sharing_enabled, max_passengers,
		co_passengers, status, created_at, updated_at FROM rides WHERE id=$1`, id)
	var r models.Ride
	var vt, st string
	var co pq.StringArray
	err := row.Scan(&r.ID, &r.RiderID, &r.DriverID, &r.Pickup.Lat, &r.Pickup.Lon, &r.Pickup.Address,
		&r.Dropoff.Lat, &r.Dropoff.Lon, &r.Dropoff.Address, &vt, &r.BaseFare, &r.TotalFare,
		&r.DistanceKm, &r.DurationMin, &r.Sharing, &r.MaxPassengers,
		&co, &st, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	r.VehicleType = models.VehicleType(vt)
	r.Status = models.RideStatus(st)
	r.CoPassengers = []string(co)
	return &r, true, nil
}

func (p *PostgresStore) SavePassenger(rp *models.RidePassenger) error {
	_, err := p.db.Exec(`INSERT INTO ride_passengers(ride_id, passenger_id, fare_share, carbon_saved, wallet_cashback)
		VALUES($1,$2,$3,$4,$5)`,
		rp.RideID, rp.PassengerID, rp.FareShare, rp.CarbonSavedKg, rp.WalletCashback)
	return err
}

func (p *PostgresStore) GetWallet(userID string) (*models.Wallet, error) {
	w := &models.Wallet{UserID: userID}
	err := p.db.QueryRow(`SELECT balance, eco_credits, updated_at FROM wallets WHERE user_id=$1`, userID).
		Scan(&w.Balance, &w.EcoCredits, &w.UpdatedAt)
	if err == sql.ErrNoRows {
		w.UpdatedAt = time.Now()
		_, err = p.db.Exec(`INSERT INTO wallets(user_id, balance, eco_credits, updated_at) VALUES($1,0,0,$2)
			ON CONFLICT (user_id) DO NOTHING`, userID, w.UpdatedAt)
		return w, err
	}
	return w, err
}

func (p *PostgresStore) Credit(userID string, amount int64, kind models.WalletTransactionKind, rideID, note string) error {
	if _, err := p.GetWallet(userID); err != nil {
		return err
	}
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(`UPDATE wallets SET balance=balance+$1, updated_at=$2 WHERE user_id=$3`,
		amount, time.Now(), userID); err != nil {
		return err
	}
	if err := insertTxn(tx, userID, rideID, kind, amount, note); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Debit(userID string, amount int64, note string) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.Exec(`UPDATE wallets SET balance=balance-$1, updated_at=$2 WHERE user_id=$3 AND balance>=$1`,
		amount, time.Now(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientFunds
	}
	if err := insertTxn(tx, userID, "", models.TxnDebit, amount, note); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) AddEcoCredits(userID string, credits int64) error {
	if _, err := p.GetWallet(userID); err != nil {
		return err
	}
	_, err := p.db.Exec(`UPDATE wallets SET eco_credits=eco_credits+$1, updated_at=$2 WHERE user_id=$3`,
		credits, time.Now(), userID)
	return err
}

func (p *PostgresStore) ConvertEcoCredits(userID string, credits int64) error {
	tx, err := p.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	res, err := tx.Exec(`UPDATE wallets SET eco_credits=eco_credits-$1, balance=balance+$1, updated_at=$2
		WHERE user_id=$3 AND eco_credits>=$1`, credits, time.Now(), userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInsufficientFunds
	}
	if err := insertTxn(tx, userID, "", models.TxnCredit, credits, "eco credits conversion"); err != nil {
		return err
	}
	return tx.Commit()
}

func (p *PostgresStore) Transactions(userID string, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.Query(`SELECT id::text, wallet_id, COALESCE(ride_id,''), kind, amount, COALESCE(note,''), created_at
		FROM wallet_transactions WHERE wallet_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.WalletTransaction
	for rows.Next() {
		var t models.WalletTransaction
		var kind string
		if err := rows.Scan(&t.ID, &t.WalletID, &t.RideID, &kind, &t.Amount, &t.Note, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Kind = models.WalletTransactionKind(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (p *PostgresStore) SaveEarning(e *models.DriverEarning) error {
	var id int64
	err := p.db.QueryRow(`INSERT INTO driver_earnings(driver_id, ride_id, gross_fare, platform_fee, share_bonus, net, earned_at)
		VALUES($1,$2,$3,$4,$5,$6,$7) RETURNING id`,
		e.DriverID, e.RideID, e.GrossFare, e.PlatformFee, e.ShareBonus, e.Net, e.EarnedAt).Scan(&id)
	if err != nil {
		return err
	}
	e.ID = strconv.FormatInt(id, 10)
	return nil
}

func (p *PostgresStore) EarningsSince(driverID string, sinceUnix int64) ([]models.DriverEarning, error) {
	rows, err := p.db.Query(`SELECT id::text, driver_id, ride_id, gross_fare, platform_fee, share_bonus, net, earned_at
		FROM driver_earnings WHERE driver_id=$1 AND earned_at >= to_timestamp($2) ORDER BY earned_at`, driverID, sinceUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.DriverEarning
	for rows.Next() {
		var e models.DriverEarning
		if err := rows.Scan(&e.ID, &e.DriverID, &e.RideID, &e.GrossFare, &e.PlatformFee, &e.ShareBonus, &e.Net, &e.EarnedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func insertTxn(tx *sql.Tx, userID, rideID string, kind models.WalletTransactionKind, amount int64, note string) error {
	var ride interface{}
	if rideID != "" {
		ride = rideID
	}
	_, err := tx.Exec(`INSERT INTO wallet_transactions(wallet_id, ride_id, kind, amount, note, created_at)
		VALUES($1,$2,$3,$4,$5,$6)`, userID, ride, string(kind), amount, note, time.Now())
	return err
}
