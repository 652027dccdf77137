package db

// SchemaSQL contains the database schema initialization SQL.
const SchemaSQL = `
    -- ==========================================================================
    -- TASK TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS task SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS owner ON task TYPE string;
    DEFINE FIELD IF NOT EXISTS text ON task TYPE string ASSERT string::len(string::trim($value)) > 0;
    DEFINE FIELD IF NOT EXISTS completed ON task TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_at ON task TYPE datetime;
    DEFINE FIELD IF NOT EXISTS updated_at ON task TYPE datetime;

    -- Every lookup is by owner, or by (owner, id) through the record id
    DEFINE INDEX IF NOT EXISTS task_owner ON task FIELDS owner;
    DEFINE INDEX IF NOT EXISTS task_owner_created ON task FIELDS owner, created_at;
`
