package repository

const schemaUp = `
CREATE TABLE IF NOT EXISTS classes (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    avatar_ref TEXT NOT NULL DEFAULT '',
    league     TEXT NOT NULL,
    position   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_classes_league ON classes(league, position);

CREATE TABLE IF NOT EXISTS students (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    avatar_ref TEXT NOT NULL DEFAULT '',
    class_id   TEXT NOT NULL REFERENCES classes(id) ON DELETE CASCADE,
    league     TEXT NOT NULL,
    position   INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_students_league_class ON students(league, class_id, position);

CREATE TABLE IF NOT EXISTS star_logs (
    id         BIGSERIAL PRIMARY KEY,
    student_id TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    amount     DOUBLE PRECISION NOT NULL,
    reason_tag TEXT NOT NULL DEFAULT '',
    awarded_at TIMESTAMP WITH TIME ZONE NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_star_logs_awarded_at ON star_logs(awarded_at);

CREATE TABLE IF NOT EXISTS trials (
    id               BIGSERIAL PRIMARY KEY,
    student_id       TEXT NOT NULL REFERENCES students(id) ON DELETE CASCADE,
    taken_at         TIMESTAMP WITH TIME ZONE NOT NULL,
    numeric_score    DOUBLE PRECISION,
    max_score        DOUBLE PRECISION,
    qualitative_tier TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_trials_taken_at ON trials(taken_at);

CREATE TABLE IF NOT EXISTS ceremony_views (
    scope_id  TEXT NOT NULL,
    month     CHAR(7) NOT NULL,
    kind      TEXT NOT NULL,
    viewed_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
    PRIMARY KEY (scope_id, month, kind)
);
`
