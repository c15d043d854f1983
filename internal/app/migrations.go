package app

import "serotonyl.ru/labubu-roulette/internal/db/postgres"

// SQL-миграции встроены в код для упрощения деплоя.
// Номера версий не меняются: новая схема идёт новой миграцией.
var migrations = []postgres.Migration{
	{Version: 1, Name: "users", SQL: migration001Users},
	{Version: 2, Name: "settings", SQL: migration002Settings},
	{Version: 3, Name: "prizes", SQL: migration003Prizes},
	{Version: 4, Name: "spins_wins", SQL: migration004Spins},
	{Version: 5, Name: "collection", SQL: migration005Collection},
	{Version: 6, Name: "labu_transactions", SQL: migration006Ledger},
	{Version: 7, Name: "referral_bonuses", SQL: migration007Referral},
	{Version: 8, Name: "payments", SQL: migration008Payments},
	{Version: 9, Name: "admin", SQL: migration009Admin},
}

var migration001Users = `
CREATE TABLE IF NOT EXISTS users (
    id BIGSERIAL PRIMARY KEY,
    session_id VARCHAR(128) UNIQUE NOT NULL,
    telegram_id BIGINT UNIQUE,
    name VARCHAR(255) NOT NULL,
    username VARCHAR(255),
    labu_balance BIGINT NOT NULL DEFAULT 0,
    rub_balance BIGINT NOT NULL DEFAULT 0 CHECK (rub_balance >= 0),
    referral_code VARCHAR(16) UNIQUE NOT NULL,
    referred_by_id BIGINT REFERENCES users(id),
    referral_earnings BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (referred_by_id IS NULL OR referred_by_id <> id)
);
CREATE INDEX IF NOT EXISTS idx_users_referred_by ON users(referred_by_id);
`

var migration002Settings = `
CREATE TABLE IF NOT EXISTS settings (
    key VARCHAR(64) PRIMARY KEY,
    value TEXT NOT NULL,
    description TEXT,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

var migration003Prizes = `
CREATE TABLE IF NOT EXISTS prizes (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    value BIGINT NOT NULL DEFAULT 0,
    chance DOUBLE PRECISION NOT NULL DEFAULT 0 CHECK (chance >= 0),
    rarity VARCHAR(32) NOT NULL DEFAULT 'common',
    color VARCHAR(32) NOT NULL DEFAULT '',
    icon VARCHAR(64) NOT NULL DEFAULT '',
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    prize_type VARCHAR(16) NOT NULL CHECK (prize_type IN ('part', 'labu', 'empty')),
    part_type VARCHAR(16),
    part_rarity VARCHAR(16),
    labu_amount BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CHECK (prize_type <> 'part' OR (part_type IS NOT NULL AND part_rarity IS NOT NULL)),
    CHECK (prize_type <> 'labu' OR labu_amount > 0)
);
-- промах ровно один
CREATE UNIQUE INDEX IF NOT EXISTS uq_prizes_empty ON prizes(prize_type) WHERE prize_type = 'empty';
`

var migration004Spins = `
CREATE TABLE IF NOT EXISTS spins (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL CHECK (amount >= 0),
    spin_type VARCHAR(16) NOT NULL DEFAULT 'normal',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_spins_user ON spins(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS wins (
    id BIGSERIAL PRIMARY KEY,
    spin_id BIGINT UNIQUE NOT NULL REFERENCES spins(id),
    user_id BIGINT NOT NULL REFERENCES users(id),
    prize_id BIGINT NOT NULL REFERENCES prizes(id),
    verified BOOLEAN NOT NULL DEFAULT FALSE,
    claimed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_wins_created ON wins(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_wins_user ON wins(user_id);
`

var migration005Collection = `
CREATE TABLE IF NOT EXISTS user_collection (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    part_type VARCHAR(16) NOT NULL CHECK (part_type IN ('part1', 'part2', 'part3', 'part4')),
    part_rarity VARCHAR(16) NOT NULL CHECK (part_rarity IN ('normal', 'exclusive')),
    quantity INTEGER NOT NULL DEFAULT 1 CHECK (quantity >= 1),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, part_type, part_rarity)
);
`

var migration006Ledger = `
CREATE TABLE IF NOT EXISTS labu_transactions (
    id BIGSERIAL PRIMARY KEY,
    user_id BIGINT NOT NULL REFERENCES users(id),
    amount BIGINT NOT NULL,
    type VARCHAR(32) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    related_id BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_labu_tx_user ON labu_transactions(user_id, created_at DESC);
`

var migration007Referral = `
CREATE TABLE IF NOT EXISTS referral_bonuses (
    id BIGSERIAL PRIMARY KEY,
    referrer_id BIGINT NOT NULL REFERENCES users(id),
    referral_id BIGINT NOT NULL REFERENCES users(id),
    action VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL CHECK (amount > 0),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (referrer_id, referral_id, action)
);
`

var migration008Payments = `
CREATE TABLE IF NOT EXISTS payments (
    id BIGSERIAL PRIMARY KEY,
    provider VARCHAR(16) NOT NULL,
    order_id VARCHAR(128) NOT NULL,
    user_id BIGINT NOT NULL REFERENCES users(id),
    product VARCHAR(32) NOT NULL,
    amount BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (provider, order_id)
);
`

var migration009Admin = `
CREATE TABLE IF NOT EXISTS admin_sessions (
    id BIGSERIAL PRIMARY KEY,
    session_token VARCHAR(128) UNIQUE NOT NULL,
    client_ip VARCHAR(64) NOT NULL,
    authenticated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    expires_at TIMESTAMPTZ NOT NULL,
    last_activity TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_admin_sessions_expires ON admin_sessions(expires_at);

CREATE TABLE IF NOT EXISTS admin_login_attempts (
    id BIGSERIAL PRIMARY KEY,
    client_ip VARCHAR(64) NOT NULL,
    attempt_time TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    success BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS idx_admin_attempts_ip ON admin_login_attempts(client_ip, attempt_time);
`
